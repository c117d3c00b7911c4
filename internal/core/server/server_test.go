package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/solatis/fieldcheck/internal/core/api"
	"github.com/solatis/fieldcheck/internal/core/config"
	"github.com/solatis/fieldcheck/internal/core/store"
	"github.com/solatis/fieldcheck/internal/rules"
)

const ageRules = `{"age": {"dataType": "number", "range": {"min": 18, "max": 65}, "required": true}}`

func newTestService(t *testing.T) *api.ValidatorService {
	t.Helper()
	engine, err := rules.NewEngine()
	require.NoError(t, err)
	mem := store.NewMemoryStore()
	svc, err := api.NewValidatorService(context.Background(), engine, mem, mem, api.Options{})
	require.NoError(t, err)
	return svc
}

func startBufconn(t *testing.T) *grpc.ClientConn {
	t.Helper()
	srv, err := NewGRPCServer(config.DefaultServiceConfig(), newTestService(t), nil)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestNewGRPCServer_NilArguments(t *testing.T) {
	_, err := NewGRPCServer(nil, newTestService(t), nil)
	assert.Error(t, err)
	_, err = NewGRPCServer(config.DefaultServiceConfig(), nil, nil)
	assert.Error(t, err)
}

func TestGRPC_Validate(t *testing.T) {
	client := NewValidatorClient(startBufconn(t))
	ctx := context.Background()

	resp, err := client.Validate(ctx, api.ValidateRequest{
		Data:  json.RawMessage(`{"age": 30}`),
		Rules: json.RawMessage(ageRules),
	})
	require.NoError(t, err)
	assert.True(t, resp.Validate)
	assert.Empty(t, resp.Message)

	resp, err = client.Validate(ctx, api.ValidateRequest{
		Data:  json.RawMessage(`{"age": 12}`),
		Rules: json.RawMessage(ageRules),
	})
	require.NoError(t, err)
	assert.False(t, resp.Validate)
	assert.Equal(t, "The value of age must be greater than or equal to 18", resp.Message)
}

func TestGRPC_ErrorCodes(t *testing.T) {
	client := NewValidatorClient(startBufconn(t))

	tests := []struct {
		name string
		req  api.ValidateRequest
		want codes.Code
	}{
		{
			name: "missing data",
			req:  api.ValidateRequest{Rules: json.RawMessage(ageRules)},
			want: codes.InvalidArgument,
		},
		{
			name: "bad rule",
			req:  api.ValidateRequest{Data: json.RawMessage(`{"age": 1}`), Rules: json.RawMessage(`{"age": {"range": {}}}`)},
			want: codes.InvalidArgument,
		},
		{
			name: "unknown rule set",
			req:  api.ValidateRequest{Data: json.RawMessage(`{"age": 1}`), RuleSet: "nope"},
			want: codes.NotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Validate(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
}

func TestGRPC_Health(t *testing.T) {
	conn := startBufconn(t)
	resp, err := grpc_health_v1.NewHealthClient(conn).Check(context.Background(),
		&grpc_health_v1.HealthCheckRequest{Service: ValidatorServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := recoveryInterceptor(zap.NewNop())
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: ValidateMethod},
		func(context.Context, interface{}) (interface{}, error) { panic("boom") })
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestTimeoutInterceptor(t *testing.T) {
	interceptor := timeoutInterceptor(time.Minute)
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{},
		func(ctx context.Context, _ interface{}) (interface{}, error) {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return nil, nil
		})
	assert.NoError(t, err)
}

func newTestHTTP(t *testing.T) http.Handler {
	t.Helper()
	cfg := config.DefaultServiceConfig()
	cfg.MaxDocumentSize = 1024
	srv, err := NewHTTPServer(cfg, newTestService(t), nil)
	require.NoError(t, err)
	return srv.Routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTP_Health(t *testing.T) {
	rec := do(t, newTestHTTP(t), http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHTTP_Validate(t *testing.T) {
	h := newTestHTTP(t)

	rec := do(t, h, http.MethodPost, "/api/v1/validate", `{"data": {"age": 70}, "rules": `+ageRules+`}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.ValidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Validate)
	assert.Equal(t, "The value of age must be less than or equal to 65", resp.Message)

	rec = do(t, h, http.MethodPost, "/api/v1/validate", `{"data": {"age": 40}, "rules": `+ageRules+`}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"validate": true}`, rec.Body.String())
}

func TestHTTP_ValidateErrors(t *testing.T) {
	h := newTestHTTP(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "malformed body", body: `{"data":`, want: http.StatusBadRequest},
		{name: "missing data", body: `{"rules": ` + ageRules + `}`, want: http.StatusBadRequest},
		{name: "unknown preset", body: `{"data": {"a": 1}, "rules": {"a": {"custom": "nope"}}}`, want: http.StatusBadRequest},
		{name: "unknown rule set", body: `{"data": {"a": 1}, "ruleSet": "nope"}`, want: http.StatusNotFound},
		{name: "too large", body: `{"data": {"a": "` + strings.Repeat("x", 8192) + `"}}`, want: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/validate", tt.body)
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestHTTP_RuleSetLifecycle(t *testing.T) {
	h := newTestHTTP(t)

	rec := do(t, h, http.MethodPut, "/api/v1/rulesets/adults", ageRules)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stored store.RuleSetRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, "adults", stored.Name)
	assert.NotEmpty(t, stored.ID)

	rec = do(t, h, http.MethodGet, "/api/v1/rulesets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []store.RuleSetRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = do(t, h, http.MethodGet, "/api/v1/rulesets/adults", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/validate", `{"data": {"age": 17}, "ruleSet": "adults"}`)
	assert.Contains(t, rec.Body.String(), `"validate":false`)

	rec = do(t, h, http.MethodPut, "/api/v1/rulesets/broken", `{"age": {"len": 3}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/v1/rulesets/adults", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/rulesets/adults", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/v1/rulesets/adults", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_EmptyRuleSetList(t *testing.T) {
	rec := do(t, newTestHTTP(t), http.MethodGet, "/api/v1/rulesets", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHTTP_Presets(t *testing.T) {
	h := newTestHTTP(t)

	rec := do(t, h, http.MethodPut, "/api/v1/presets/cpf", `{"regex": "/^\\d{11}$/"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/v1/presets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var names struct {
		Presets []string `json:"presets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &names))
	assert.Contains(t, names.Presets, "cpf")
	assert.Contains(t, names.Presets, "email")

	rec = do(t, h, http.MethodPost, "/api/v1/validate", `{"data": {"doc": "123"}, "rules": {"doc": {"custom": "cpf"}}}`)
	assert.Contains(t, rec.Body.String(), `"validate":false`)

	rec = do(t, h, http.MethodDelete, "/api/v1/presets/cpf", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/v1/presets/cpf", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, httpStatus(api.ErrStorage))
	assert.Equal(t, http.StatusGatewayTimeout, httpStatus(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, httpStatus(assert.AnError))
	assert.Equal(t, codes.Unavailable, grpcCode(api.ErrStorage))
	assert.NoError(t, toStatus(nil))
}
