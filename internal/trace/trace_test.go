package trace

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSpan_RootGeneratesTraceID(t *testing.T) {
	t.Parallel()

	s := StartSpan("root", nil)
	defer s.End()

	assert.Equal(t, "root", s.Name())
	assert.NotEmpty(t, s.TraceID())
}

func TestStartSpan_NewTraceCarriesSession(t *testing.T) {
	t.Parallel()

	sc := NewTrace(TraceInit{
		Name:      "workflow",
		SessionID: "session-1",
		Metadata:  map[string]any{"company_name": "X"},
	})
	root := StartSpan("run", sc)
	defer root.End()

	child := StartSpan("stage", ChildOf(root))
	defer child.End()

	assert.NotEmpty(t, root.TraceID())
	assert.Equal(t, root.TraceID(), child.TraceID())
	assert.Equal(t, root.sessionID, child.sessionID)
	assert.Equal(t, "session-1", child.sessionID)
}

func TestStartSpan_ChildOfNilIsRoot(t *testing.T) {
	t.Parallel()

	s := StartSpan("stage", ChildOf(nil))
	defer s.End()

	assert.NotEmpty(t, s.TraceID())
}

func TestNewSpanContext_RejectsBothParts(t *testing.T) {
	t.Parallel()

	parent := StartSpan("parent", nil)
	defer parent.End()

	_, err := NewSpanContext(parent, &TraceInit{Name: "x"})
	require.Error(t, err)

	sc, err := NewSpanContext(parent, nil)
	require.NoError(t, err)
	assert.NotNil(t, sc)

	sc, err = NewSpanContext(nil, &TraceInit{Name: "x"})
	require.NoError(t, err)
	assert.NotNil(t, sc)

	sc, err = NewSpanContext(nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, sc)
}

func TestSpan_EndIsIdempotent(t *testing.T) {
	t.Parallel()

	s := StartSpan("once", nil)
	s.SetInput("in")
	s.SetOutput("out")
	s.End()
	assert.True(t, s.ended)

	// Second End must be a no-op, not a panic or duplicate record.
	s.End()
}

func TestSpan_NilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var s *Span
	s.SetInput("in")
	s.SetOutput("out")
	s.Error(eris.New("boom"))
	s.End()
}

func TestSpan_ErrorStillEnds(t *testing.T) {
	t.Parallel()

	s := StartSpan("failing", nil)
	s.Error(eris.New("stage failed"))
	s.End()
	assert.True(t, s.ended)
}
