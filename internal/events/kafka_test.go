package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/joseph-ayodele/docflow/constants"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
	closed  bool
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	var out kgo.ProduceResults
	for _, r := range rs {
		f.records = append(f.records, r)
		out = append(out, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return out
}

func (f *fakeProducer) Close() { f.closed = true }

func TestKafkaPublisherKeysByDocument(t *testing.T) {
	fp := &fakeProducer{}
	p := NewKafkaPublisherWithProducer(fp, "docflow.document-events", nil)

	e := New(TypeFailed, "doc-1", constants.StatusError, "fetch failed")
	require.NoError(t, p.Publish(t.Context(), e))

	require.Len(t, fp.records, 1)
	rec := fp.records[0]
	assert.Equal(t, "docflow.document-events", rec.Topic)
	assert.Equal(t, "doc-1", string(rec.Key))
	assert.Equal(t, TypeFailed, string(rec.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, "doc-1", decoded["documentId"])
	assert.Equal(t, "error", decoded["status"])
	assert.Equal(t, "fetch failed", decoded["error"])
	assert.NotEmpty(t, decoded["id"])

	p.Close()
	assert.True(t, fp.closed)
}

func TestKafkaPublisherSurfacesProduceError(t *testing.T) {
	fp := &fakeProducer{err: errors.New("broker down")}
	p := NewKafkaPublisherWithProducer(fp, "t", nil)
	err := p.Publish(t.Context(), New(TypeCompleted, "d", constants.StatusCompleted, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNewKafkaPublisherValidatesConfig(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{Topic: "t"}, nil)
	assert.Error(t, err)
	_, err = NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}}, nil)
	assert.Error(t, err)
}
