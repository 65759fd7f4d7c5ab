package transport

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haowjy/meridian-ondevice-go"
	"github.com/haowjy/meridian-ondevice-go/store"
)

func newChat(model *fakeModel, suggestions *store.Suggestions) *ChatTransport {
	return NewChatTransport(model, Options{NewID: sequentialIDs(), Suggestions: suggestions})
}

func chatRequest(text string) *ondevice.GenerateRequest {
	return &ondevice.GenerateRequest{Messages: []ondevice.Message{ondevice.UserMessage(text)}}
}

func TestChatTransport_StreamsDeltasAndSuggestions(t *testing.T) {
	model := &fakeModel{
		partials: chatPartials("Hel", "Hello", "Hello there"),
		final:    `{"response":"Hello there","suggestions":["A?","B?"]}`,
	}
	suggestions := store.NewSuggestions()
	rec := &ondevice.Recorder{}

	err := newChat(model, suggestions).SendMessages(context.Background(), chatRequest("hi"), rec)

	require.NoError(t, err)
	assert.Equal(t, []ondevice.Event{
		ondevice.TextStart{ID: "text-1"},
		ondevice.TextDelta{ID: "text-1", Delta: "Hel"},
		ondevice.TextDelta{ID: "text-1", Delta: "lo"},
		ondevice.TextDelta{ID: "text-1", Delta: " there"},
		ondevice.TextEnd{ID: "text-1"},
	}, rec.Events())
	assert.Equal(t, []string{"A?", "B?"}, suggestions.Get())
}

func TestChatTransport_ForwardsRequest(t *testing.T) {
	model := &fakeModel{final: `{"response":""}`}
	req := &ondevice.GenerateRequest{
		Messages: []ondevice.Message{
			ondevice.UserMessage("hi"),
			ondevice.AssistantMessage("hello"),
			ondevice.UserMessage("tell me more"),
		},
	}

	require.NoError(t, newChat(model, nil).SendMessages(context.Background(), req, nil))

	sent := model.lastRequest()
	require.NotNil(t, sent)
	assert.Equal(t, DefaultSystemPrompt, sent.System)
	assert.Same(t, ondevice.ChatResponseSchema, sent.Schema)
	assert.Equal(t, req.Messages, sent.Messages)
}

func TestChatTransport_SkipsUnchangedAndEmptySnapshots(t *testing.T) {
	model := &fakeModel{
		partials: []string{`{}`, `{"response":""}`, `{"response":"Hi"}`, `{"response":"Hi"}`, `{"response":"Hi","suggestions":[]}`, `{"response":"Hi!"}`},
		final:    `{"response":"Hi!"}`,
	}
	rec := &ondevice.Recorder{}

	require.NoError(t, newChat(model, nil).SendMessages(context.Background(), chatRequest("hi"), rec))
	assert.Equal(t, []ondevice.EventType{
		ondevice.EventTextStart,
		ondevice.EventTextDelta,
		ondevice.EventTextDelta,
		ondevice.EventTextEnd,
	}, rec.Types())
	assert.Equal(t, "Hi!", rec.Text())
}

func TestChatTransport_NoTextNoTextEvents(t *testing.T) {
	model := &fakeModel{partials: []string{`{}`}, final: `{"response":""}`}
	rec := &ondevice.Recorder{}

	require.NoError(t, newChat(model, nil).SendMessages(context.Background(), chatRequest("hi"), rec))
	assert.Empty(t, rec.Events())
}

func TestChatTransport_GrowingPrefixChains(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	words := strings.Fields("the quick brown fox jumps over the lazy dog while héllo wörld streams ✓ past")

	for i := 0; i < 50; i++ {
		var sb strings.Builder
		var snapshots []string
		n := 1 + rng.Intn(len(words))
		for j := 0; j < n; j++ {
			sb.WriteString(words[rng.Intn(len(words))])
			sb.WriteString(" ")
			snapshots = append(snapshots, sb.String())
			if rng.Intn(3) == 0 {
				snapshots = append(snapshots, sb.String())
			}
		}
		text := sb.String()

		model := &fakeModel{partials: chatPartials(snapshots...), final: `{"response":"x"}`}
		rec := &ondevice.Recorder{}
		require.NoError(t, newChat(model, nil).SendMessages(context.Background(), chatRequest("hi"), rec))

		types := rec.Types()
		require.NotEmpty(t, types)
		assert.Equal(t, ondevice.EventTextStart, types[0])
		assert.Equal(t, ondevice.EventTextEnd, types[len(types)-1])
		for _, typ := range types[1 : len(types)-1] {
			assert.Equal(t, ondevice.EventTextDelta, typ)
		}
		assert.Equal(t, text, rec.Text(), "chain %d", i)
	}
}

func TestChatTransport_CancelBeforeText(t *testing.T) {
	model := &fakeModel{partials: chatPartials("Hel", "Hello"), final: `{"response":"Hello","suggestions":["A?"]}`}
	suggestions := store.NewSuggestions()
	rec := &ondevice.Recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newChat(model, suggestions).SendMessages(ctx, chatRequest("hi"), rec)

	require.NoError(t, err)
	assert.Empty(t, rec.Events())
	assert.Empty(t, suggestions.Get())
}

func TestChatTransport_CancelMidStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	model := &fakeModel{
		partials: chatPartials("Hel", "Hello", "Hello there"),
		final:    `{"response":"Hello there","suggestions":["A?"]}`,
	}
	suggestions := store.NewSuggestions()
	sink := &cancelOn{trigger: ondevice.EventTextDelta, cancel: cancel}

	err := newChat(model, suggestions).SendMessages(ctx, chatRequest("hi"), sink)

	require.NoError(t, err)
	assert.Equal(t, []ondevice.Event{
		ondevice.TextStart{ID: "text-1"},
		ondevice.TextDelta{ID: "text-1", Delta: "Hel"},
		ondevice.TextEnd{ID: "text-1"},
	}, sink.Events())
	assert.Empty(t, suggestions.Get())
}

func TestChatTransport_CancelWhileSourceIsSilent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	model := &fakeModel{partials: chatPartials("Hel"), hang: true}
	sink := &cancelOn{trigger: ondevice.EventTextDelta, cancel: cancel}

	err := newChat(model, nil).SendMessages(ctx, chatRequest("hi"), sink)

	require.NoError(t, err)
	assert.Equal(t, []ondevice.EventType{
		ondevice.EventTextStart,
		ondevice.EventTextDelta,
		ondevice.EventTextEnd,
	}, sink.Types())
}

func TestChatTransport_CancelDuringProvisioning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	model := &fakeModel{
		availability: []ondevice.Availability{ondevice.AvailabilityDownloadable, ondevice.AvailabilityAvailable},
		ticks:        []float64{0.3, 0.7},
	}
	sink := &cancelOn{trigger: ondevice.EventProvisioningProgress, cancel: cancel}

	err := newChat(model, nil).SendMessages(ctx, chatRequest("hi"), sink)

	require.NoError(t, err)
	assert.Equal(t, []ondevice.EventType{ondevice.EventProvisioningProgress}, sink.Types())
	assert.Zero(t, model.requestCount())
}

func TestChatTransport_ProvisionsThenStreams(t *testing.T) {
	model := &fakeModel{
		availability: []ondevice.Availability{ondevice.AvailabilityDownloadable, ondevice.AvailabilityAvailable},
		ticks:        []float64{0.3, 0.7, 1.0},
		partials:     chatPartials("Hi"),
		final:        `{"response":"Hi"}`,
	}
	rec := &ondevice.Recorder{}

	require.NoError(t, newChat(model, nil).SendMessages(context.Background(), chatRequest("hi"), rec))

	assert.Equal(t, []ondevice.Event{
		ondevice.ProvisioningProgress{ID: "download-1", Percent: 30, Message: downloadingMessage},
		ondevice.ProvisioningProgress{ID: "download-1", Percent: 70, Message: downloadingMessage},
		ondevice.ProvisioningComplete{ID: "download-1", Message: downloadedMessage},
		ondevice.TextStart{ID: "text-2"},
		ondevice.TextDelta{ID: "text-2", Delta: "Hi"},
		ondevice.TextEnd{ID: "text-2"},
	}, rec.Events())
}

func TestChatTransport_GenerationErrorClosesStream(t *testing.T) {
	model := &fakeModel{
		partials:   chatPartials("Hel", "Hello"),
		partialErr: errors.New("model crashed"),
	}
	rec := &ondevice.Recorder{}

	err := newChat(model, nil).SendMessages(context.Background(), chatRequest("hi"), rec)

	require.Error(t, err)
	assert.ErrorIs(t, err, ondevice.ErrGenerationFailed)
	assert.Contains(t, err.Error(), "model crashed")
	assert.True(t, ondevice.IsRetryable(err))

	events := rec.Events()
	assert.Equal(t, []ondevice.EventType{
		ondevice.EventTextStart,
		ondevice.EventTextDelta,
		ondevice.EventTextDelta,
		ondevice.EventTextEnd,
		ondevice.EventNotification,
	}, rec.Types())
	note := events[len(events)-1].(ondevice.Notification)
	assert.Equal(t, ondevice.LevelError, note.Level)
	assert.Equal(t, "Error: "+err.Error(), note.Message)
}

func TestChatTransport_AbortFlavouredErrorIsSwallowed(t *testing.T) {
	model := &fakeModel{
		partials:   chatPartials("Hel"),
		partialErr: errors.New("The operation was aborted."),
	}
	rec := &ondevice.Recorder{}

	err := newChat(model, nil).SendMessages(context.Background(), chatRequest("hi"), rec)

	require.NoError(t, err)
	assert.Equal(t, []ondevice.EventType{
		ondevice.EventTextStart,
		ondevice.EventTextDelta,
		ondevice.EventTextEnd,
	}, rec.Types())
}

func TestChatTransport_InvariantViolation(t *testing.T) {
	tests := []struct {
		name     string
		partials []string
		previous string
		current  string
	}{
		{"shrank", chatPartials("Hello there", "Hello"), "Hello there", "Hello"},
		{"diverged", chatPartials("Hello", "Help me"), "Hello", "Help me"},
		{"cleared then regrown", chatPartials("Hello", "", "Hello again"), "Hello", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &fakeModel{partials: tt.partials, final: `{"response":"x"}`}
			rec := &ondevice.Recorder{}

			err := newChat(model, nil).SendMessages(context.Background(), chatRequest("hi"), rec)

			require.Error(t, err)
			assert.ErrorIs(t, err, ondevice.ErrStreamInvariantViolation)
			assert.True(t, ondevice.IsContractError(err))
			assert.False(t, ondevice.IsRetryable(err))

			var invErr *ondevice.InvariantError
			require.ErrorAs(t, err, &invErr)
			assert.Equal(t, "response", invErr.Field)
			assert.Equal(t, tt.previous, invErr.Previous)
			assert.Equal(t, tt.current, invErr.Current)

			assert.Equal(t, []ondevice.EventType{
				ondevice.EventTextStart,
				ondevice.EventTextDelta,
				ondevice.EventTextEnd,
				ondevice.EventNotification,
			}, rec.Types())
			assert.Equal(t, tt.previous, rec.Text())
		})
	}
}

func TestChatTransport_FinalObjectError(t *testing.T) {
	model := &fakeModel{partials: chatPartials("Hi"), finalErr: errors.New("schema mismatch")}
	suggestions := store.NewSuggestions()
	rec := &ondevice.Recorder{}

	err := newChat(model, suggestions).SendMessages(context.Background(), chatRequest("hi"), rec)

	require.Error(t, err)
	assert.ErrorIs(t, err, ondevice.ErrGenerationFailed)
	assert.Equal(t, []ondevice.EventType{
		ondevice.EventTextStart,
		ondevice.EventTextDelta,
		ondevice.EventTextEnd,
		ondevice.EventNotification,
	}, rec.Types())
	assert.Empty(t, suggestions.Get())
}

func TestChatTransport_SuggestionsAreNotCleared(t *testing.T) {
	tests := []struct {
		name  string
		final string
	}{
		{"absent", `{"response":"Hi"}`},
		{"empty", `{"response":"Hi","suggestions":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggestions := store.NewSuggestions()
			suggestions.SetSuggestions([]string{"Earlier?"})
			model := &fakeModel{partials: chatPartials("Hi"), final: tt.final}

			require.NoError(t, newChat(model, suggestions).SendMessages(context.Background(), chatRequest("hi"), nil))
			assert.Equal(t, []string{"Earlier?"}, suggestions.Get())
		})
	}
}

func TestChatTransport_InvalidParams(t *testing.T) {
	model := &fakeModel{}
	rec := &ondevice.Recorder{}
	temp := 5.0
	req := chatRequest("hi")
	req.Params = &ondevice.RequestParams{Temperature: &temp}

	err := newChat(model, nil).SendMessages(context.Background(), req, rec)

	require.Error(t, err)
	assert.True(t, ondevice.IsInvalidRequest(err))
	assert.Zero(t, model.requestCount())
	assert.Equal(t, []ondevice.EventType{ondevice.EventNotification}, rec.Types())
}

func TestChatTransport_GenerateError(t *testing.T) {
	model := &fakeModel{generateErr: errors.New("session closed")}
	rec := &ondevice.Recorder{}

	err := newChat(model, nil).SendMessages(context.Background(), chatRequest("hi"), rec)

	require.Error(t, err)
	assert.ErrorIs(t, err, ondevice.ErrGenerationFailed)
	assert.Equal(t, []ondevice.EventType{ondevice.EventNotification}, rec.Types())
}

func TestChatTransport_Stream(t *testing.T) {
	model := &fakeModel{partials: chatPartials("Hel", "Hello"), final: `{"response":"Hello"}`}
	events, errc := newChat(model, nil).Stream(context.Background(), chatRequest("hi"))

	var got []ondevice.EventType
	for ev := range events {
		got = append(got, ev.Type())
	}
	require.NoError(t, <-errc)
	assert.Equal(t, []ondevice.EventType{
		ondevice.EventTextStart,
		ondevice.EventTextDelta,
		ondevice.EventTextDelta,
		ondevice.EventTextEnd,
	}, got)
}

func TestChatTransport_StreamError(t *testing.T) {
	model := &fakeModel{availability: []ondevice.Availability{ondevice.AvailabilityUnavailable}}
	events, errc := newChat(model, nil).Stream(context.Background(), chatRequest("hi"))

	var got []ondevice.EventType
	for ev := range events {
		got = append(got, ev.Type())
	}
	assert.ErrorIs(t, <-errc, ondevice.ErrProvisioningFailed)
	assert.Equal(t, []ondevice.EventType{ondevice.EventNotification}, got)
}

func TestChatTransport_ReconnectToStream(t *testing.T) {
	events, err := newChat(&fakeModel{}, nil).ReconnectToStream(context.Background(), "chat-1")
	assert.NoError(t, err)
	assert.Nil(t, events)
}
