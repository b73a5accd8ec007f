package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/prolite-gateway/internal/api/middleware"
	"github.com/taoyao-code/prolite-gateway/internal/coremodel"
	"github.com/taoyao-code/prolite-gateway/internal/poller"
	"github.com/taoyao-code/prolite-gateway/internal/protocol"
	"github.com/taoyao-code/prolite-gateway/internal/tcpclient"
)

type fakeDisplay struct {
	kind   coremodel.Protocol
	values map[coremodel.Command]string
	sets   []coremodel.Value
	err    error
}

func (f *fakeDisplay) ID() string { return "dev-1" }
func (f *fakeDisplay) Protocol() coremodel.Protocol { return f.kind }
func (f *fakeDisplay) Addr() string { return "10.0.0.5:4664" }
func (f *fakeDisplay) ConnState() tcpclient.State { return tcpclient.StateConnected }
func (f *fakeDisplay) Supports(cmd coremodel.Command) bool {
	if f.kind == coremodel.ProtocolLH42UHS {
		return cmd == coremodel.CmdPower || cmd == coremodel.CmdVideoSource
	}
	return true
}

func (f *fakeDisplay) Get(_ context.Context, cmd coremodel.Command) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if !f.Supports(cmd) {
		return "", protocol.ErrUnsupportedCommand
	}
	return f.values[cmd], nil
}

func (f *fakeDisplay) Set(_ context.Context, cmd coremodel.Command, v coremodel.Value) error {
	if f.err != nil {
		return f.err
	}
	if !f.Supports(cmd) {
		return protocol.ErrUnsupportedCommand
	}
	f.sets = append(f.sets, v)
	f.values[cmd] = v.String()
	return nil
}

type fakeStatus struct{ snap poller.Snapshot }

func (f fakeStatus) Snapshot() poller.Snapshot { return f.snap }

type fakeWaker struct {
	mac string
	err error
}

func (f *fakeWaker) Wake(_ context.Context, mac string) error {
	f.mac = mac
	return f.err
}

func newTestRouter(dev Display, status StatusSource, waker Waker, mac string, auth middleware.AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewDisplayHandler(dev, status, waker, mac, zap.NewNop())
	RegisterDisplayRoutes(r, h, auth, zap.NewNop())
	return r
}

func doRequest(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newTE04Display() *fakeDisplay {
	return &fakeDisplay{kind: coremodel.ProtocolTE04, values: map[coremodel.Command]string{
		coremodel.CmdVolume:      "035",
		coremodel.CmdVideoSource: "001",
		coremodel.CmdHue:         "x1z",
	}}
}

func TestGetProperty(t *testing.T) {
	r := newTestRouter(newTE04Display(), nil, nil, "", middleware.AuthConfig{})

	w := doRequest(r, http.MethodGet, "/api/v1/display/properties/volume", "")
	require.Equal(t, http.StatusOK, w.Code)
	var vol propertyView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vol))
	assert.Equal(t, "volume", vol.Property)
	require.NotNil(t, vol.Value)
	assert.Equal(t, 35, *vol.Value)

	w = doRequest(r, http.MethodGet, "/api/v1/display/properties/video_source", "")
	require.Equal(t, http.StatusOK, w.Code)
	var src propertyView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &src))
	assert.Equal(t, "001", src.Code)
	assert.Equal(t, "hdmi1", src.Name)

	w = doRequest(r, http.MethodGet, "/api/v1/display/properties/hue", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = doRequest(r, http.MethodGet, "/api/v1/display/properties/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetProperty(t *testing.T) {
	dev := newTE04Display()
	r := newTestRouter(dev, nil, nil, "", middleware.AuthConfig{})

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"数值", "/api/v1/display/properties/volume", `{"value": 60}`, http.StatusOK},
		{"枚举名称", "/api/v1/display/properties/video_source", `{"value": "hdmi2"}`, http.StatusOK},
		{"枚举码", "/api/v1/display/properties/aspect_ratio", `{"value": "001"}`, http.StatusOK},
		{"数值属性传字符串", "/api/v1/display/properties/volume", `{"value": "loud"}`, http.StatusBadRequest},
		{"数值属性传小数", "/api/v1/display/properties/volume", `{"value": 1.5}`, http.StatusBadRequest},
		{"未知枚举", "/api/v1/display/properties/video_source", `{"value": "hdmi9"}`, http.StatusBadRequest},
		{"缺少 value", "/api/v1/display/properties/volume", `{}`, http.StatusBadRequest},
		{"null", "/api/v1/display/properties/volume", `{"value": null}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
	require.Len(t, dev.sets, 3)
	assert.Equal(t, 60, dev.sets[0].Int())
	assert.Equal(t, "002", dev.sets[1].CodeString())
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"NACK", protocol.ErrNack, http.StatusConflict},
		{"校验", protocol.ErrChecksum, http.StatusBadGateway},
		{"未知应答", protocol.ErrUnknownResponse, http.StatusBadGateway},
		{"不支持", protocol.ErrUnsupportedCommand, http.StatusNotImplemented},
		{"连接", &protocol.ConnError{Op: "dial", Err: errors.New("refused")}, http.StatusGatewayTimeout},
		{"其他", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newTE04Display()
			dev.err = tt.err
			r := newTestRouter(dev, nil, nil, "", middleware.AuthConfig{})
			w := doRequest(r, http.MethodGet, "/api/v1/display/properties/volume", "")
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestLH42UHSUnsupported(t *testing.T) {
	dev := &fakeDisplay{kind: coremodel.ProtocolLH42UHS, values: map[coremodel.Command]string{}}
	r := newTestRouter(dev, nil, nil, "", middleware.AuthConfig{})

	w := doRequest(r, http.MethodPut, "/api/v1/display/properties/volume", `{"value": 10}`)
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = doRequest(r, http.MethodGet, "/api/v1/display/properties", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"property":"power","scalar":false,"supported":true`)
}

func TestGetStatus(t *testing.T) {
	status := fakeStatus{snap: poller.Snapshot{
		Input:  coremodel.SourceHDMI1,
		Power:  coremodel.PowerBacklightOn,
		Status: poller.StatusOK,
	}}
	r := newTestRouter(newTE04Display(), status, nil, "", middleware.AuthConfig{})

	w := doRequest(r, http.MethodGet, "/api/v1/display/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "dev-1", body["device_id"])
	assert.Equal(t, "connected", body["connection"])
	poll := body["poll"].(map[string]any)
	assert.Equal(t, "ok", poll["status"])
	assert.Equal(t, "backlight_on", body["power"].(map[string]any)["name"])
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

func TestWake(t *testing.T) {
	r := newTestRouter(newTE04Display(), nil, nil, "", middleware.AuthConfig{})
	w := doRequest(r, http.MethodPost, "/api/v1/display/wake", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	waker := &fakeWaker{}
	r = newTestRouter(newTE04Display(), nil, waker, "00:11:22:33:44:55", middleware.AuthConfig{})
	w = doRequest(r, http.MethodPost, "/api/v1/display/wake", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "00:11:22:33:44:55", waker.mac)
}

func TestAPIKeyAuth(t *testing.T) {
	auth := middleware.AuthConfig{Enabled: true, APIKeys: []string{"sk_test_123456"}}
	r := newTestRouter(newTE04Display(), nil, nil, "", auth)

	w := doRequest(r, http.MethodGet, "/api/v1/display/status", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, http.MethodGet, "/api/v1/display/status", "", "X-API-Key", "wrong")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(r, http.MethodGet, "/api/v1/display/status", "", "Authorization", "Bearer sk_test_123456")
	assert.Equal(t, http.StatusOK, w.Code)
}
