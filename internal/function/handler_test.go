package function

import (
	"context"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docflow/internal/processor"
)

type stubProcessor struct {
	result processor.Result
	calls  []string
}

func (s *stubProcessor) ProcessDocument(_ context.Context, id string) processor.Result {
	s.calls = append(s.calls, id)
	r := s.result
	r.DocumentID = id
	return r
}

func newEvent(t *testing.T, data any) cloudevents.Event {
	t.Helper()
	e := cloudevents.NewEvent()
	e.SetID("evt-1")
	e.SetType("docflow.document.uploaded")
	e.SetSource("test")
	require.NoError(t, e.SetData(cloudevents.ApplicationJSON, data))
	return e
}

func TestProcessDocumentEventSuccess(t *testing.T) {
	stub := &stubProcessor{result: processor.Result{Success: true}}
	err := NewHandler(stub, nil).ProcessDocumentEvent(t.Context(), newEvent(t, Payload{DocumentID: "doc-1"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1"}, stub.calls)
}

func TestProcessDocumentEventFailureIsReturned(t *testing.T) {
	stub := &stubProcessor{result: processor.Result{Error: "fetch failed"}}
	err := NewHandler(stub, nil).ProcessDocumentEvent(t.Context(), newEvent(t, Payload{DocumentID: "doc-1"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch failed")
}

func TestProcessDocumentEventNotRedelivered(t *testing.T) {
	cases := map[string]processor.Result{
		"in flight": {AlreadyProcessing: true, Error: processor.MsgAlreadyProcessing},
		"not found": {Error: processor.MsgDocumentNotFound},
	}
	for name, res := range cases {
		t.Run(name, func(t *testing.T) {
			stub := &stubProcessor{result: res}
			assert.NoError(t, NewHandler(stub, nil).ProcessDocumentEvent(t.Context(), newEvent(t, Payload{DocumentID: "doc-1"})))
		})
	}
}

func TestProcessDocumentEventBadPayload(t *testing.T) {
	stub := &stubProcessor{}
	h := NewHandler(stub, nil)
	assert.NoError(t, h.ProcessDocumentEvent(t.Context(), newEvent(t, map[string]any{"other": 1})))
	assert.NoError(t, h.ProcessDocumentEvent(t.Context(), newEvent(t, "not an object")))
	assert.Empty(t, stub.calls)
}
