package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/coordflow/rag"
	"github.com/BaSui01/coordflow/testutil"
	"github.com/BaSui01/coordflow/testutil/mocks"
	"github.com/BaSui01/coordflow/types"
)

func TestGeneralWorkerAppendsOneReply(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponse("a friendly answer")
	w := NewGeneralWorker(provider, "test-model", nil, nil)

	in := []types.Message{types.NewUserMessage("what's the weather today")}
	out, err := w.Process(testutil.TestContext(t), in)
	require.NoError(t, err)

	require.Len(t, out, 2)
	reply := out[1]
	assert.Equal(t, types.RoleAssistant, reply.Role)
	assert.Equal(t, "general_agent", reply.Name)
	assert.Equal(t, "a friendly answer", reply.Content)
	assert.Len(t, in, 1)
}

func TestAnalystWorkerUsesRetrievedContext(t *testing.T) {
	retriever := rag.NewKeywordRetriever(nil)
	retriever.AddDocument("The sales order header table stores revenue totals per year.")

	provider := mocks.NewMockProvider().WithResponse("revenue went up")
	w := NewAnalystWorker(provider, "test-model", retriever, nil)

	out, err := w.Process(testutil.TestContext(t), []types.Message{
		types.NewUserMessage("show the revenue totals by sales year"),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "data_analyst", out[1].Name)

	// The system prompt handed to the provider embeds the retrieved passage.
	reqs := provider.Requests()
	require.Len(t, reqs, 1)
	system := reqs[0].Messages[0]
	assert.Equal(t, types.RoleSystem, system.Role)
	assert.Contains(t, system.Content, "sales order header")
}

// recordingRetriever captures the depth each retrieval was asked for.
type recordingRetriever struct {
	lastK int
	text  string
}

func (r *recordingRetriever) Retrieve(ctx context.Context, query string, k int) (string, error) {
	r.lastK = k
	return r.text, nil
}

func TestWorkerDefaultRetrievalDepths(t *testing.T) {
	r := &recordingRetriever{text: "passage"}

	g := NewGeneralWorker(mocks.NewMockProvider().WithResponse("ok"), "m", r, nil)
	_, err := g.Process(testutil.TestContext(t), []types.Message{types.NewUserMessage("q")})
	require.NoError(t, err)
	assert.Equal(t, generalContextTopK, r.lastK)

	a := NewAnalystWorker(mocks.NewMockProvider().WithResponse("ok"), "m", r, nil)
	_, err = a.Process(testutil.TestContext(t), []types.Message{types.NewUserMessage("q")})
	require.NoError(t, err)
	assert.Equal(t, analystContextTopK, r.lastK)
}

func TestWorkerContextTopKOverride(t *testing.T) {
	r := &recordingRetriever{text: "passage"}
	w := NewAnalystWorker(mocks.NewMockProvider().WithResponse("ok"), "m", r, nil, WithContextTopK(7))

	_, err := w.Process(testutil.TestContext(t), []types.Message{types.NewUserMessage("q")})
	require.NoError(t, err)
	assert.Equal(t, 7, r.lastK)
}

func TestWorkerNoRetrieverMeansEmptyContext(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponse("ok")
	w := NewGeneralWorker(provider, "test-model", nil, nil)

	_, err := w.Process(testutil.TestContext(t), []types.Message{types.NewUserMessage("hi")})
	require.NoError(t, err)

	reqs := provider.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, types.RoleSystem, reqs[0].Messages[0].Role)
}

func TestWorkerPropagatesProviderFailure(t *testing.T) {
	boom := errors.New("provider down")
	w := NewAnalystWorker(mocks.NewMockProvider().WithError(boom), "test-model", nil, nil)

	_, err := w.Process(testutil.TestContext(t), []types.Message{types.NewUserMessage("q")})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestWorkerCapabilities(t *testing.T) {
	g := NewGeneralWorker(mocks.NewMockProvider(), "m", nil, nil)
	a := NewAnalystWorker(mocks.NewMockProvider(), "m", nil, nil)

	assert.Contains(t, g.Capabilities(), "General conversation")
	assert.Contains(t, a.Capabilities(), "Statistical analysis and reporting")
	assert.Equal(t, types.WorkerGeneral, g.Kind())
	assert.Equal(t, types.WorkerAnalyst, a.Kind())
}

func TestRegistryLookupAndFallback(t *testing.T) {
	r := NewRegistry()
	g := NewGeneralWorker(mocks.NewMockProvider(), "m", nil, nil)
	a := NewAnalystWorker(mocks.NewMockProvider(), "m", nil, nil)
	r.Register(g)
	r.Register(a)

	w, err := r.Lookup(types.WorkerAnalyst)
	require.NoError(t, err)
	assert.Equal(t, types.WorkerAnalyst, w.Kind())

	// Unknown kinds fall back to the general worker.
	w, err = r.Lookup(types.WorkerKind("research_wizard"))
	require.NoError(t, err)
	assert.Equal(t, types.WorkerGeneral, w.Kind())

	assert.ElementsMatch(t, []types.WorkerKind{types.WorkerGeneral, types.WorkerAnalyst}, r.Kinds())
}

func TestRegistryEmptyLookupFails(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup(types.WorkerAnalyst)
	assert.Error(t, err)
}
