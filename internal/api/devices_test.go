package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/nerrad567/devtrack/internal/device"
)

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func getDevices(t *testing.T, h http.Handler) map[string]map[string]any {
	t.Helper()
	w := do(t, h, httptest.NewRequest(http.MethodGet, "/get_devices", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get_devices status = %d, want 200", w.Code)
	}
	var out map[string]map[string]any
	decodeBody(t, w, &out)
	return out
}

// ─── Report Tests ──────────────────────────────────────────────────

func TestReport_RenameLifecycle(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := do(t, router, httptest.NewRequest(http.MethodGet,
		"/update?id=phone1&lat=35.38&lon=-1.09&batt=87&timestamp=1700000000", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("report status = %d, want 200", w.Code)
	}
	var ack reportResponse
	decodeBody(t, w, &ack)
	if ack.Status != "success" {
		t.Errorf("report status field = %q, want success", ack.Status)
	}

	devices := getDevices(t, router)
	phone, ok := devices["phone1"]
	if !ok {
		t.Fatalf("phone1 missing from %v", devices)
	}
	if phone["custom_name"] != "phone1" {
		t.Errorf("custom_name = %v, want phone1", phone["custom_name"])
	}
	if phone["lat"] != 35.38 || phone["lon"] != -1.09 {
		t.Errorf("position = %v,%v, want 35.38,-1.09", phone["lat"], phone["lon"])
	}
	if phone["battery"] != "87" || phone["timestamp"] != "1700000000" {
		t.Errorf("telemetry = %v/%v, want 87/1700000000", phone["battery"], phone["timestamp"])
	}
	if v, present := phone["speed"]; !present || v != nil {
		t.Errorf("speed = %v (present %v), want null", v, present)
	}

	w = do(t, router, jsonRequest(http.MethodPost, "/rename_device", `{"device_id":"phone1","new_name":"My Phone"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("rename status = %d, want 200", w.Code)
	}
	var renamed renameResponse
	decodeBody(t, w, &renamed)
	if !renamed.Success {
		t.Error("rename success = false, want true")
	}

	// The name survives a later report.
	do(t, router, httptest.NewRequest(http.MethodGet, "/update?id=phone1&lat=36&lon=-2", nil))

	phone = getDevices(t, router)["phone1"]
	if phone["custom_name"] != "My Phone" {
		t.Errorf("custom_name = %v, want My Phone", phone["custom_name"])
	}
	if phone["lat"] != float64(36) {
		t.Errorf("lat = %v, want 36", phone["lat"])
	}
	if phone["battery"] != nil {
		t.Errorf("battery = %v, want null after a report without it", phone["battery"])
	}
}

func TestReport_Sources(t *testing.T) {
	form := url.Values{"id": {"form1"}, "lat": {"1.5"}, "lon": {"2.5"}}

	var multi bytes.Buffer
	mw := multipart.NewWriter(&multi)
	for k, v := range map[string]string{"id": "multi1", "lat": "3", "lon": "4"} {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("multipart Close: %v", err)
	}

	tests := []struct {
		name    string
		req     func() *http.Request
		wantID  string
		wantLat float64
	}{
		{
			name: "query on GET /update",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/update?id=q1&lat=10&lon=20", nil)
			},
			wantID:  "q1",
			wantLat: 10,
		},
		{
			name: "query on POST /",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/?id=q2&lat=11&lon=21", nil)
			},
			wantID:  "q2",
			wantLat: 11,
		},
		{
			name: "url-encoded form",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/update", strings.NewReader(form.Encode()))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return req
			},
			wantID:  "form1",
			wantLat: 1.5,
		},
		{
			name: "multipart form",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(multi.Bytes()))
				req.Header.Set("Content-Type", mw.FormDataContentType())
				return req
			},
			wantID:  "multi1",
			wantLat: 3,
		},
		{
			name: "JSON body",
			req: func() *http.Request {
				return jsonRequest(http.MethodPost, "/", `{"id":"json1","lat":12.5,"lon":22,"speed":3.4}`)
			},
			wantID:  "json1",
			wantLat: 12.5,
		},
		{
			name: "JSON body without content type",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/update", strings.NewReader(`{"id":"json2","lat":"13","lon":"23"}`))
			},
			wantID:  "json2",
			wantLat: 13,
		},
		{
			name: "JSON body wins over query",
			req: func() *http.Request {
				return jsonRequest(http.MethodPost, "/update?id=ignored&lat=0&lon=0", `{"id":"json3","lat":14,"lon":24}`)
			},
			wantID:  "json3",
			wantLat: 14,
		},
		{
			name: "empty JSON object falls back to query",
			req: func() *http.Request {
				return jsonRequest(http.MethodPost, "/update?id=q3&lat=15&lon=25", `{}`)
			},
			wantID:  "q3",
			wantLat: 15,
		},
		{
			name: "zero latitude is a real position",
			req: func() *http.Request {
				return jsonRequest(http.MethodPost, "/", `{"id":"equator","lat":0,"lon":9}`)
			},
			wantID:  "equator",
			wantLat: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, registry := testServer(t)

			w := do(t, srv.buildRouter(), tt.req())
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
			}

			rec, err := registry.Get(tt.wantID)
			if err != nil {
				t.Fatalf("Get(%q) error = %v; registry has %v", tt.wantID, err, registry.Snapshot())
			}
			if rec.Position == nil || rec.Position.Latitude != tt.wantLat {
				t.Errorf("position = %+v, want lat %v", rec.Position, tt.wantLat)
			}
			if registry.Count() != 1 {
				t.Errorf("Count() = %d, want 1", registry.Count())
			}
		})
	}
}

func TestReport_JSONNumbersPassThrough(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := do(t, router, jsonRequest(http.MethodPost, "/", `{"id":"p","lat":1,"lon":2,"batt":55,"accuracy":"4.5"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	phone := getDevices(t, router)["p"]
	if phone["battery"] != float64(55) {
		t.Errorf("battery = %#v, want number 55", phone["battery"])
	}
	if phone["accuracy"] != "4.5" {
		t.Errorf("accuracy = %#v, want string 4.5", phone["accuracy"])
	}
}

func TestReport_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		req     *http.Request
		wantMsg string
	}{
		{
			name:    "no fields",
			req:     httptest.NewRequest(http.MethodGet, "/update", nil),
			wantMsg: "id is required",
		},
		{
			name:    "missing latitude",
			req:     httptest.NewRequest(http.MethodGet, "/update?id=phone1&lon=2", nil),
			wantMsg: "lat is required",
		},
		{
			name:    "missing longitude",
			req:     jsonRequest(http.MethodPost, "/", `{"id":"phone1","lat":1}`),
			wantMsg: "lon is required",
		},
		{
			name:    "blank id",
			req:     httptest.NewRequest(http.MethodGet, "/update?id=%20&lat=1&lon=2", nil),
			wantMsg: "id is required",
		},
		{
			name:    "non-numeric latitude",
			req:     httptest.NewRequest(http.MethodGet, "/update?id=phone1&lat=north&lon=2", nil),
			wantMsg: "lat must be a finite number",
		},
		{
			name:    "boolean id",
			req:     jsonRequest(http.MethodPost, "/update", `{"id":true,"lat":1,"lon":2}`),
			wantMsg: "id must be a string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, registry := testServer(t)

			w := do(t, srv.buildRouter(), tt.req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			var resp reportResponse
			decodeBody(t, w, &resp)
			if resp.Status != "error" {
				t.Errorf("status field = %q, want error", resp.Status)
			}
			if resp.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMsg)
			}
			if registry.Count() != 0 {
				t.Errorf("Count() = %d, want 0 after a rejected report", registry.Count())
			}
		})
	}
}

func TestReport_MethodNotAllowed(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv.buildRouter(), httptest.NewRequest(http.MethodDelete, "/update", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /update status = %d, want 405", w.Code)
	}
}

// ─── Rename Tests ──────────────────────────────────────────────────

func TestRename_UnknownDevice(t *testing.T) {
	srv, registry := testServer(t)
	router := srv.buildRouter()

	w := do(t, router, jsonRequest(http.MethodPost, "/rename_device", `{"device_id":"ghost","new_name":"X"}`))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var resp renameResponse
	decodeBody(t, w, &resp)
	if resp.Success || resp.Message != msgDeviceUnknown {
		t.Errorf("response = %+v, want device not found", resp)
	}
	if registry.Count() != 0 {
		t.Errorf("Count() = %d, rename must not create devices", registry.Count())
	}
	if len(getDevices(t, router)) != 0 {
		t.Error("get_devices should still be empty")
	}
}

func TestRename_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"malformed JSON", `{"device_id":`, msgInvalidJSON},
		{"not an object", `["phone1","X"]`, msgInvalidJSON},
		{"empty body", ``, msgInvalidJSON},
		{"missing device_id", `{"new_name":"X"}`, "device_id is required"},
		{"missing new_name", `{"device_id":"phone1"}`, "new_name is required"},
		{"blank new_name", `{"device_id":"phone1","new_name":"   "}`, "new_name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, registry := testServer(t)
			registry.Upsert(device.Report{ID: "phone1"})

			w := do(t, srv.buildRouter(), jsonRequest(http.MethodPost, "/rename_device", tt.body))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			var resp renameResponse
			decodeBody(t, w, &resp)
			if resp.Success {
				t.Error("success = true, want false")
			}
			if resp.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMsg)
			}

			rec, _ := registry.Get("phone1")
			if rec.DisplayName != "phone1" {
				t.Errorf("DisplayName = %q, want unchanged", rec.DisplayName)
			}
		})
	}
}

func TestRename_TrimsName(t *testing.T) {
	srv, registry := testServer(t)
	registry.Upsert(device.Report{ID: "phone1"})

	w := do(t, srv.buildRouter(), jsonRequest(http.MethodPost, "/rename_device", `{"device_id":" phone1 ","new_name":"  Car  "}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	rec, _ := registry.Get("phone1")
	if rec.DisplayName != "Car" {
		t.Errorf("DisplayName = %q, want Car", rec.DisplayName)
	}
}

// ─── Listing Tests ─────────────────────────────────────────────────

func TestGetDevices_Empty(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv.buildRouter(), httptest.NewRequest(http.MethodGet, "/get_devices", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "{}" {
		t.Errorf("body = %s, want {}", got)
	}
}

func TestListDevices_Sorted(t *testing.T) {
	srv, registry := testServer(t)
	for _, id := range []string{"charlie", "alpha", "bravo"} {
		registry.Upsert(device.Report{ID: id})
	}

	w := do(t, srv.buildRouter(), httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Devices []device.Record `json:"devices"`
		Count   int             `json:"count"`
	}
	decodeBody(t, w, &resp)
	if resp.Count != 3 {
		t.Fatalf("count = %d, want 3", resp.Count)
	}
	for i, want := range []string{"alpha", "bravo", "charlie"} {
		if resp.Devices[i].ID != want {
			t.Errorf("devices[%d] = %q, want %q", i, resp.Devices[i].ID, want)
		}
	}
}

func TestGetDevice(t *testing.T) {
	srv, registry := testServer(t)
	router := srv.buildRouter()
	registry.Upsert(device.Report{ID: "phone1", Position: device.Position{Latitude: 1, Longitude: 2}})

	w := do(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/devices/phone1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var rec device.Record
	decodeBody(t, w, &rec)
	if rec.ID != "phone1" || rec.Position == nil || rec.Position.Longitude != 2 {
		t.Errorf("record = %+v", rec)
	}

	w = do(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/devices/ghost", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown device status = %d, want 404", w.Code)
	}
}
