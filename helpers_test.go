package retdec

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("unable to start test server listener: %v", err)
	}
	server := httptest.NewUnstartedServer(handler)
	server.Listener = ln
	server.Start()
	return server
}

// clearEnv blanks every variable LoadConfig reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"RETDEC_API_KEY", "RETDEC_API_URL", "RETDEC_TIMEOUT", "RETDEC_WAIT_INTERVAL",
		"RETDEC_DEBUG", "RETDEC_PROXY", "RETDEC_EXTRA_HEADERS", "RETDEC_REQUEST_ID",
		"RETDEC_AUTO_REQUEST_ID", "RETDEC_REQUEST_ID_HEADER", "RETDEC_MAX_IDLE_CONNS",
		"RETDEC_MAX_IDLE_CONNS_PER_HOST", "RETDEC_IDLE_CONN_TIMEOUT", "RETDEC_CONFIG",
	} {
		t.Setenv(name, "")
	}
}

type mockConnection struct {
	mock.Mock
}

func (m *mockConnection) SendGetRequestWithContext(ctx context.Context, path string, params map[string]string, out any) error {
	args := m.Called(ctx, path, params, out)
	return args.Error(0)
}

func (m *mockConnection) GetFileWithContext(ctx context.Context, path string, params map[string]string) (*File, error) {
	args := m.Called(ctx, path, params)
	f, _ := args.Get(0).(*File)
	return f, args.Error(1)
}

// onGet queues one response per document for GET requests to path, in order.
func (m *mockConnection) onGet(t *testing.T, path string, docs ...string) {
	t.Helper()
	for _, doc := range docs {
		doc := doc
		m.On("SendGetRequestWithContext", mock.Anything, path, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				require.NoError(t, json.Unmarshal([]byte(doc), args.Get(3)))
			}).
			Return(nil).
			Once()
	}
}
