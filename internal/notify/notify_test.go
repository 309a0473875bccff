package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audiophile/internal/conf"
	"github.com/tphakala/audiophile/internal/observability/metrics"
)

type recordingPublisher struct {
	name string
	err  error

	mu     sync.Mutex
	events []Event
	closed bool
}

func (r *recordingPublisher) Name() string { return r.name }

func (r *recordingPublisher) Publish(_ context.Context, ev *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *ev)
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return nil
}

func TestEventMarshal(t *testing.T) {
	ev := &Event{
		Type:        EventDriftDetected,
		FileID:      7,
		FileName:    "meeting",
		Reference:   "ref",
		Predictions: 3,
		PValue:      0.01,
	}
	data, err := ev.Marshal()
	require.NoError(t, err)
	assert.False(t, ev.Timestamp.IsZero())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "drift.detected", decoded["type"])
	assert.Equal(t, "meeting", decoded["file_name"])
	assert.NotContains(t, decoded, "pass")
	assert.Equal(t, "drift", ev.Kind())
}

func TestMultiFanOut(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := metrics.NewNotifyMetrics(registry)
	require.NoError(t, err)

	ok := &recordingPublisher{name: "ok"}
	bad := &recordingPublisher{name: "bad", err: fmt.Errorf("boom")}
	after := &recordingPublisher{name: "after"}

	multi := NewMulti(m, ok, bad, after)
	err = multi.Publish(context.Background(), &Event{Type: EventPassCompleted})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	assert.Len(t, ok.events, 1)
	assert.Len(t, bad.events, 1)
	assert.Len(t, after.events, 1, "a failing sink must not block the next one")
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("bad")), 0)

	require.NoError(t, multi.Close())
	assert.True(t, ok.closed)
	assert.True(t, after.closed)
}

func TestMultiEmpty(t *testing.T) {
	multi := NewMulti(nil)
	assert.Zero(t, multi.Len())
	require.NoError(t, multi.Publish(context.Background(), &Event{Type: EventPassCompleted}))

	var got []EventType
	multi.Add(NewFuncPublisher("func", func(_ context.Context, ev *Event) error {
		got = append(got, ev.Type)
		return nil
	}))
	require.NoError(t, multi.Publish(context.Background(), &Event{Type: EventGenerationCommitted}))
	assert.Equal(t, []EventType{EventGenerationCommitted}, got)
}

type fakeSender struct {
	messages []string
	titles   []string
	errs     []error
}

func (f *fakeSender) Send(message string, params *stypes.Params) []error {
	f.messages = append(f.messages, message)
	if title, ok := (*params)["title"]; ok {
		f.titles = append(f.titles, title)
	}
	return f.errs
}

func TestShoutrrrNotifierFiltersEvents(t *testing.T) {
	fake := &fakeSender{}
	n := &ShoutrrrNotifier{sender: fake, title: "audiophile"}

	require.NoError(t, n.Publish(context.Background(), &Event{Type: EventGenerationCommitted}))
	require.NoError(t, n.Publish(context.Background(), &Event{Type: EventPassCompleted}))
	assert.Empty(t, fake.messages)

	require.NoError(t, n.Publish(context.Background(), &Event{
		Type:              EventDriftDetected,
		FileName:          "meeting",
		Statistic:         0.6,
		PValue:            0.0012,
		Predictions:       12,
		PreviousReference: "abc",
		Policy:            "observe",
	}))
	require.Len(t, fake.messages, 1)
	assert.Equal(t, `Confidence drift on "meeting": KS D=0.600 p=0.0012 over 12 predictions (live generation abc), policy observe`, fake.messages[0])
	assert.Equal(t, []string{"audiophile"}, fake.titles)

	fake.errs = []error{nil, fmt.Errorf("send failed")}
	require.Error(t, n.Publish(context.Background(), &Event{Type: EventGenerationQuarantined}))
}

func TestNewShoutrrrNotifierValidates(t *testing.T) {
	_, err := NewShoutrrrNotifier(nil, "", time.Second)
	require.Error(t, err)

	_, err = NewShoutrrrNotifier([]string{"notaservice://token@host"}, "", time.Second)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "token@host")
}

func TestMQTTTopic(t *testing.T) {
	s := &conf.Settings{
		Main: conf.MainSettings{Name: "node-1"},
		MQTT: conf.MQTTSettings{Broker: "tcp://localhost:1883", Topic: "audiophile/"},
	}
	cfg := MQTTConfigFromSettings(s)
	assert.Equal(t, "node-1", cfg.ClientID)

	p := NewMQTTPublisher(cfg, nil)
	assert.Equal(t, "audiophile/generation", p.Topic(&Event{Type: EventGenerationQuarantined}))
	assert.Equal(t, "audiophile/pass", p.Topic(&Event{Type: EventPassCompleted}))
	assert.False(t, p.IsConnected())
	require.Error(t, p.Publish(context.Background(), &Event{Type: EventPassCompleted}))
	require.NoError(t, p.Close())
}

func TestMQTTConnectRejectsBadBroker(t *testing.T) {
	p := NewMQTTPublisher(MQTTConfig{Broker: "::not a url", ConnectTimeout: time.Second}, nil)
	require.Error(t, p.Connect(context.Background()))
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "http://not-redis")
	require.Error(t, err)
}
