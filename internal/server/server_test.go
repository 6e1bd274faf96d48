package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/goliatone/go-formbuilder/pkg/codec"
	"github.com/goliatone/go-formbuilder/pkg/compiler"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/store"
	"github.com/goliatone/go-formbuilder/pkg/testsupport"
)

var (
	fixedNow = time.Date(2024, 3, 9, 10, 30, 0, 0, time.UTC)

	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")
)

func newTestServer(t *testing.T, groups ...model.FieldGroup) (*store.Store, *httptest.Server) {
	t.Helper()
	st := testsupport.NewStore(t, groups...)
	srv := New(st,
		WithClock(func() time.Time { return fixedNow }),
		WithIDSource(model.NewIDSource(func() time.Time { return fixedNow })),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return st, ts
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.body, v); err != nil {
		t.Fatalf("decode %s: %v", r.body, err)
	}
}

func do(t *testing.T, ts *httptest.Server, method, path, contentType string, body io.Reader) response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return response{status: res.StatusCode, header: res.Header, body: data}
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, body string) response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	return do(t, ts, method, path, contentJSON, reader)
}

func expectStatus(t *testing.T, res response, want int) {
	t.Helper()
	if res.status != want {
		t.Fatalf("status: want %d, got %d (%s)", want, res.status, res.body)
	}
}

func expectProblem(t *testing.T, res response, status int, kind string) map[string]any {
	t.Helper()
	expectStatus(t, res, status)
	if got := res.header.Get("Content-Type"); got != contentProblem {
		t.Fatalf("content type: %q", got)
	}
	var problem map[string]any
	res.decode(t, &problem)
	if problem["type"] != kind {
		t.Fatalf("problem type: want %q, got %v", kind, problem["type"])
	}
	return problem
}

func TestGroupLifecycle(t *testing.T) {
	_, ts := newTestServer(t, testsupport.Groups()...)

	res := doJSON(t, ts, http.MethodPost, "/api/groups", `{"name":" Signup ","description":"New users"}`)
	expectStatus(t, res, http.StatusCreated)
	var created model.FieldGroup
	res.decode(t, &created)
	want := model.FieldGroup{ID: 3, Name: "Signup", Description: "New users", Elements: []model.FieldDefinition{}}
	if diff := cmp.Diff(want, created); diff != "" {
		t.Fatalf("created mismatch (-want +got):\n%s", diff)
	}

	res = doJSON(t, ts, http.MethodPut, "/api/groups/3", `{"name":"Sign up","description":"","elements":[]}`)
	expectStatus(t, res, http.StatusOK)

	res = doJSON(t, ts, http.MethodGet, "/api/groups/3", "")
	expectStatus(t, res, http.StatusOK)
	var fetched model.FieldGroup
	res.decode(t, &fetched)
	if fetched.Name != "Sign up" {
		t.Fatalf("name: %q", fetched.Name)
	}

	res = doJSON(t, ts, http.MethodPost, "/api/groups/1/duplicate", "")
	expectStatus(t, res, http.StatusCreated)
	var copied model.FieldGroup
	res.decode(t, &copied)
	if copied.ID != 4 || len(copied.Elements) != 5 {
		t.Fatalf("duplicate: %+v", copied)
	}
	for _, element := range copied.Elements {
		if element.ID <= 11 {
			t.Fatalf("duplicate reused element id %d", element.ID)
		}
	}

	expectStatus(t, doJSON(t, ts, http.MethodDelete, "/api/groups/3", ""), http.StatusNoContent)
	expectProblem(t, doJSON(t, ts, http.MethodGet, "/api/groups/3", ""), http.StatusNotFound, "not_found")

	res = doJSON(t, ts, http.MethodGet, "/api/groups", "")
	var groups []model.FieldGroup
	res.decode(t, &groups)
	if len(groups) != 3 {
		t.Fatalf("groups: %d", len(groups))
	}
}

func TestGroupErrors(t *testing.T) {
	_, ts := newTestServer(t, testsupport.ContactGroup())

	expectProblem(t, doJSON(t, ts, http.MethodPost, "/api/groups", `{"name":"  "}`), http.StatusUnprocessableEntity, "validation_error")
	expectProblem(t, doJSON(t, ts, http.MethodPost, "/api/groups", `{"name":"A","colour":"red"}`), http.StatusBadRequest, "bad_request")
	expectProblem(t, doJSON(t, ts, http.MethodGet, "/api/groups/abc", ""), http.StatusBadRequest, "bad_request")
	expectProblem(t, doJSON(t, ts, http.MethodDelete, "/api/groups/42", ""), http.StatusNotFound, "not_found")

	problem := expectProblem(t,
		doJSON(t, ts, http.MethodPut, "/api/groups/1", `{"name":"Contact","elements":[{"id":1,"type":"colour","label":"X"}]}`),
		http.StatusUnprocessableEntity, "validation_error")
	if _, ok := problem["issues"]; !ok {
		t.Fatalf("expected issues in %v", problem)
	}
	if problem["instance"] != "/api/groups/1" {
		t.Fatalf("instance: %v", problem["instance"])
	}
}

func TestListGroups_Empty(t *testing.T) {
	_, ts := newTestServer(t)
	res := doJSON(t, ts, http.MethodGet, "/api/groups", "")
	expectStatus(t, res, http.StatusOK)
	if got := strings.TrimSpace(string(res.body)); got != "[]" {
		t.Fatalf("body: %s", got)
	}
}

func TestElements(t *testing.T) {
	st, ts := newTestServer(t, testsupport.ContactGroup())

	res := doJSON(t, ts, http.MethodPost, "/api/groups/1/elements", `{"type":"integer","label":""}`)
	expectStatus(t, res, http.StatusCreated)
	var added model.FieldDefinition
	res.decode(t, &added)
	want := model.FieldDefinition{ID: fixedNow.UnixMilli(), Type: model.FieldTypeInteger, Label: model.FieldTypeInteger.Label()}
	if diff := cmp.Diff(want, added); diff != "" {
		t.Fatalf("added mismatch (-want +got):\n%s", diff)
	}

	res = doJSON(t, ts, http.MethodPost, "/api/groups/1/elements", `{"type":"dropdown","label":"Size","required":true,"options":["S","M"]}`)
	expectStatus(t, res, http.StatusCreated)
	var dropdown model.FieldDefinition
	res.decode(t, &dropdown)
	if dropdown.ID != added.ID+1 || !dropdown.Required || len(dropdown.Options) != 2 {
		t.Fatalf("dropdown: %+v", dropdown)
	}

	expectProblem(t, doJSON(t, ts, http.MethodPost, "/api/groups/1/elements", `{"type":"colour"}`), http.StatusBadRequest, "bad_request")
	expectProblem(t, doJSON(t, ts, http.MethodPost, "/api/groups/9/elements", `{"type":"date"}`), http.StatusNotFound, "not_found")

	res = doJSON(t, ts, http.MethodPut, "/api/groups/1/elements/4", `{"type":"multi-line-text","label":"Your message","required":true}`)
	expectStatus(t, res, http.StatusOK)
	expectProblem(t,
		doJSON(t, ts, http.MethodPut, "/api/groups/1/elements/4", `{"type":"multi-line-text","label":""}`),
		http.StatusUnprocessableEntity, "validation_error")

	res = doJSON(t, ts, http.MethodPost, "/api/groups/1/elements/5/move", `{"targetId":1}`)
	expectStatus(t, res, http.StatusOK)
	var moved struct {
		Moved bool             `json:"moved"`
		Group model.FieldGroup `json:"group"`
	}
	res.decode(t, &moved)
	if !moved.Moved {
		t.Fatalf("expected move")
	}
	var order []int64
	for _, element := range moved.Group.Elements {
		order = append(order, element.ID)
	}
	if diff := cmp.Diff([]int64{5, 1, 2, 3, 4, added.ID, dropdown.ID}, order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	res = doJSON(t, ts, http.MethodPost, "/api/groups/1/elements/5/move", `{"targetId":5}`)
	res.decode(t, &moved)
	if moved.Moved {
		t.Fatalf("self drop must not move")
	}

	expectStatus(t, doJSON(t, ts, http.MethodDelete, "/api/groups/1/elements/2", ""), http.StatusNoContent)
	expectProblem(t, doJSON(t, ts, http.MethodDelete, "/api/groups/1/elements/2", ""), http.StatusNotFound, "not_found")

	group, _ := st.Group(1)
	if group.IndexOf(2) >= 0 || len(group.Elements) != 6 {
		t.Fatalf("store not updated: %+v", group.Elements)
	}
	element, _ := group.Element(4)
	if element.Label != "Your message" || !element.Required {
		t.Fatalf("update not stored: %+v", element)
	}
}

func TestDragGesture(t *testing.T) {
	st, ts := newTestServer(t, testsupport.ContactGroup())
	before, _ := st.Group(1)
	var order []int64
	for _, element := range before.Elements {
		order = append(order, element.ID)
	}

	type dragState struct {
		Dragging *int64           `json:"dragging"`
		Hovered  *int64           `json:"hovered"`
		CanDrop  bool             `json:"canDrop"`
		Moved    bool             `json:"moved"`
		Group    model.FieldGroup `json:"group"`
	}
	drag := func(body string) dragState {
		t.Helper()
		res := doJSON(t, ts, http.MethodPost, "/api/groups/1/drag", body)
		expectStatus(t, res, http.StatusOK)
		var state dragState
		res.decode(t, &state)
		return state
	}

	if state := drag(`{"event":"drop","elementId":1}`); state.Moved {
		t.Fatalf("drop without drag must not move")
	}

	state := drag(`{"event":"start","elementId":5}`)
	if state.Dragging == nil || *state.Dragging != 5 || state.Hovered != nil {
		t.Fatalf("start: %+v", state)
	}
	if state = drag(`{"event":"over","elementId":5}`); state.CanDrop {
		t.Fatalf("hovering the dragged element must not allow a drop")
	}
	drag(`{"event":"enter","elementId":2}`)
	state = drag(`{"event":"enter","elementId":1}`)
	if state.Hovered == nil || *state.Hovered != 1 {
		t.Fatalf("enter: %+v", state)
	}
	if state = drag(`{"event":"over","elementId":1}`); !state.CanDrop {
		t.Fatalf("expected drop allowed over another element")
	}

	state = drag(`{"event":"drop"}`)
	if !state.Moved || state.Dragging != nil || state.Hovered != nil {
		t.Fatalf("drop: %+v", state)
	}
	var got []int64
	for _, element := range state.Group.Elements {
		got = append(got, element.ID)
	}
	want := append([]int64{5}, order[:4]...)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	drag(`{"event":"start","elementId":2}`)
	drag(`{"event":"enter","elementId":3}`)
	if state = drag(`{"event":"cancel"}`); state.Dragging != nil {
		t.Fatalf("cancel: %+v", state)
	}
	if state = drag(`{"event":"drop"}`); state.Moved {
		t.Fatalf("drop after cancel must not move")
	}

	expectProblem(t, doJSON(t, ts, http.MethodPost, "/api/groups/1/drag", `{"event":"fling"}`), http.StatusBadRequest, "bad_request")
	expectProblem(t, doJSON(t, ts, http.MethodPost, "/api/groups/9/drag", `{"event":"start","elementId":1}`), http.StatusNotFound, "not_found")
}

func TestSelection(t *testing.T) {
	_, ts := newTestServer(t, testsupport.Groups()...)

	res := doJSON(t, ts, http.MethodGet, "/api/selection", "")
	if got := strings.TrimSpace(string(res.body)); got != `{"group":null}` {
		t.Fatalf("initial selection: %s", got)
	}

	res = doJSON(t, ts, http.MethodPut, "/api/selection", `{"groupId":2}`)
	expectStatus(t, res, http.StatusOK)
	var selected struct {
		Group *model.FieldGroup `json:"group"`
	}
	res.decode(t, &selected)
	if selected.Group == nil || selected.Group.Name != "Survey" {
		t.Fatalf("selected: %+v", selected.Group)
	}

	expectProblem(t, doJSON(t, ts, http.MethodPut, "/api/selection", `{"groupId":7}`), http.StatusNotFound, "not_found")
	expectStatus(t, doJSON(t, ts, http.MethodDelete, "/api/selection", ""), http.StatusNoContent)

	res = doJSON(t, ts, http.MethodGet, "/api/selection", "")
	if got := strings.TrimSpace(string(res.body)); got != `{"group":null}` {
		t.Fatalf("cleared selection: %s", got)
	}
}

func TestPaletteAndValidate(t *testing.T) {
	_, ts := newTestServer(t, testsupport.Groups()...)

	res := doJSON(t, ts, http.MethodGet, "/api/palette", "")
	expectStatus(t, res, http.StatusOK)
	var palette []model.PaletteCategory
	res.decode(t, &palette)
	if diff := cmp.Diff(model.Palette(), palette); diff != "" {
		t.Fatalf("palette mismatch (-want +got):\n%s", diff)
	}

	res = doJSON(t, ts, http.MethodGet, "/api/renderers", "")
	expectStatus(t, res, http.StatusOK)
	var renderers struct {
		Default   string   `json:"default"`
		Renderers []string `json:"renderers"`
	}
	res.decode(t, &renderers)
	if renderers.Default != "html" || !cmp.Equal(renderers.Renderers, []string{"html"}) {
		t.Fatalf("renderers: %+v", renderers)
	}

	res = doJSON(t, ts, http.MethodGet, "/api/validate", "")
	expectStatus(t, res, http.StatusOK)
	var result struct {
		Valid bool `json:"valid"`
	}
	res.decode(t, &result)
	if !result.Valid {
		t.Fatalf("fixtures should validate: %s", res.body)
	}
}

func TestExportImport(t *testing.T) {
	st, ts := newTestServer(t, testsupport.Groups()...)

	res := doJSON(t, ts, http.MethodGet, "/api/export", "")
	expectStatus(t, res, http.StatusOK)
	if got := res.header.Get("Content-Disposition"); got != `attachment; filename="form-configuration-2024-03-09.json"` {
		t.Fatalf("disposition: %q", got)
	}
	env, err := codec.Decode(res.body)
	if err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if env.ExportDate != "2024-03-09T10:30:00.000Z" {
		t.Fatalf("export date: %q", env.ExportDate)
	}
	if diff := cmp.Diff(testsupport.Groups(), env.FormGroups); diff != "" {
		t.Fatalf("exported groups mismatch (-want +got):\n%s", diff)
	}

	res = doJSON(t, ts, http.MethodGet, "/api/export?format=yaml", "")
	expectStatus(t, res, http.StatusOK)
	if !strings.HasSuffix(res.header.Get("Content-Disposition"), `.yaml"`) {
		t.Fatalf("yaml disposition: %q", res.header.Get("Content-Disposition"))
	}
	if _, err := codec.Decode(res.body); err != nil {
		t.Fatalf("decode yaml export: %v", err)
	}

	single, err := codec.Marshal(codec.Export([]model.FieldGroup{testsupport.SurveyGroup()}, fixedNow))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	res = do(t, ts, http.MethodPost, "/api/import", contentJSON, bytes.NewReader(single))
	expectStatus(t, res, http.StatusOK)
	var summary map[string]any
	res.decode(t, &summary)
	if summary["groups"] != float64(1) || summary["version"] != codec.Version {
		t.Fatalf("summary: %v", summary)
	}
	if diff := cmp.Diff([]model.FieldGroup{testsupport.SurveyGroup()}, st.Groups()); diff != "" {
		t.Fatalf("store after import (-want +got):\n%s", diff)
	}

	problem := expectProblem(t,
		doJSON(t, ts, http.MethodPost, "/api/import", `{"version":"1.0","formGroups":"nope"}`),
		http.StatusUnprocessableEntity, "invalid_format")
	if _, ok := problem["issues"]; !ok {
		t.Fatalf("expected issues: %v", problem)
	}
	if len(st.Groups()) != 1 {
		t.Fatalf("failed import must not touch the store")
	}

	expectProblem(t, doJSON(t, ts, http.MethodPost, "/api/import", ""), http.StatusBadRequest, "bad_request")
}

func TestOpenAPI(t *testing.T) {
	_, ts := newTestServer(t, testsupport.Groups()...)

	res := doJSON(t, ts, http.MethodGet, "/api/openapi", "")
	expectStatus(t, res, http.StatusOK)
	var doc struct {
		OpenAPI string                    `json:"openapi"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	res.decode(t, &doc)
	if !strings.HasPrefix(doc.OpenAPI, "3.") {
		t.Fatalf("openapi version: %q", doc.OpenAPI)
	}
	for _, path := range []string{"/forms/1/submissions", "/forms/2/submissions"} {
		if _, ok := doc.Paths[path]["post"]; !ok {
			t.Fatalf("missing post %s in %v", path, doc.Paths)
		}
	}

	res = doJSON(t, ts, http.MethodGet, "/api/openapi?format=yaml", "")
	expectStatus(t, res, http.StatusOK)
	if !strings.Contains(string(res.body), "/forms/1/submissions:") {
		t.Fatalf("yaml document: %s", res.body)
	}
}

func TestRender(t *testing.T) {
	_, ts := newTestServer(t, testsupport.ContactGroup())

	res := doJSON(t, ts, http.MethodGet, "/api/groups/1/render", "")
	expectStatus(t, res, http.StatusOK)
	if !strings.HasPrefix(res.header.Get("Content-Type"), "text/html") {
		t.Fatalf("content type: %q", res.header.Get("Content-Type"))
	}
	html := string(res.body)
	for _, want := range []string{`action="/api/forms/1/submissions"`, `name="field-1"`, "Full name"} {
		if !strings.Contains(html, want) {
			t.Fatalf("render missing %q:\n%s", want, html)
		}
	}

	expectProblem(t, doJSON(t, ts, http.MethodGet, "/api/groups/1/render?renderer=pdf", ""), http.StatusNotFound, "not_found")
	expectProblem(t, doJSON(t, ts, http.MethodGet, "/api/groups/8/render", ""), http.StatusNotFound, "not_found")
}

func TestSubmission_JSON(t *testing.T) {
	_, ts := newTestServer(t, testsupport.Groups()...)

	res := doJSON(t, ts, http.MethodPost, "/api/forms/1/submissions",
		`{"field-1":"Ada","field-2":"ada@example.com","field-3":"Sales","_group":"1","unknown":true}`)
	expectStatus(t, res, http.StatusCreated)
	var values map[string]any
	res.decode(t, &values)
	for key, want := range map[string]any{"field-1": "Ada", "field-2": "ada@example.com", "field-3": "Sales"} {
		if values[key] != want {
			t.Fatalf("%s: want %v, got %v", key, want, values[key])
		}
	}
	if _, ok := values["unknown"]; ok {
		t.Fatalf("unknown keys must be dropped: %v", values)
	}

	res = doJSON(t, ts, http.MethodPost, "/api/forms/2/submissions",
		`{"field-6":42,"field-7":"2024-01-02","field-10":"Good","field-11":["Email","Phone"]}`)
	expectStatus(t, res, http.StatusCreated)
	res.decode(t, &values)
	if values["field-6"] != float64(42) || values["field-7"] != "2024-01-02" {
		t.Fatalf("survey values: %v", values)
	}
	if diff := cmp.Diff([]any{"Email", "Phone"}, values["field-11"]); diff != "" {
		t.Fatalf("channels mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmission_Rejects(t *testing.T) {
	_, ts := newTestServer(t, testsupport.Groups()...)

	problem := expectProblem(t,
		doJSON(t, ts, http.MethodPost, "/api/forms/1/submissions", `{"field-2":"not-an-email"}`),
		http.StatusUnprocessableEntity, "validation_error")
	var errs map[string][]string
	data, _ := json.Marshal(problem["errors"])
	_ = json.Unmarshal(data, &errs)
	want := map[string][]string{
		"field-1": {compiler.MessageRequired},
		"field-2": {compiler.MessageEmail},
	}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	problem = expectProblem(t,
		doJSON(t, ts, http.MethodPost, "/api/forms/2/submissions", `{"field-6":1.5,"field-10":"Good"}`),
		http.StatusUnprocessableEntity, "validation_error")
	if _, ok := problem["errors"].(map[string]any)["field-6"]; !ok {
		t.Fatalf("expected integer error: %v", problem)
	}

	expectProblem(t, doJSON(t, ts, http.MethodPost, "/api/forms/9/submissions", `{}`), http.StatusNotFound, "not_found")
	expectProblem(t, doJSON(t, ts, http.MethodPost, "/api/forms/1/submissions", `not json`), http.StatusBadRequest, "bad_request")
}

func TestSubmission_Form(t *testing.T) {
	_, ts := newTestServer(t, testsupport.Groups()...)

	form := url.Values{}
	form.Set("field-6", "7")
	form.Set("field-10", "Bad")
	form.Add("field-11", "Email")
	form.Add("field-11", " ")
	res := do(t, ts, http.MethodPost, "/api/forms/2/submissions", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	expectStatus(t, res, http.StatusCreated)
	var values map[string]any
	res.decode(t, &values)
	if values["field-6"] != float64(7) || values["field-10"] != "Bad" {
		t.Fatalf("values: %v", values)
	}
	if diff := cmp.Diff([]any{"Email"}, values["field-11"]); diff != "" {
		t.Fatalf("channels mismatch (-want +got):\n%s", diff)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("field-1", "Ada")
	_ = writer.WriteField("field-2", "ada@example.com")
	part, err := writer.CreateFormFile("field-5", "pixel.png")
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write(pngBytes)
	_ = writer.Close()

	res = do(t, ts, http.MethodPost, "/api/forms/1/submissions", writer.FormDataContentType(), &body)
	expectStatus(t, res, http.StatusCreated)
	res.decode(t, &values)
	want := map[string]any{"name": "pixel.png", "size": float64(len(pngBytes)), "mime": "image/png"}
	if diff := cmp.Diff(want, values["field-5"]); diff != "" {
		t.Fatalf("upload mismatch (-want +got):\n%s", diff)
	}
}

func TestPreviewFlow(t *testing.T) {
	_, ts := newTestServer(t, testsupport.Groups()...)

	expectProblem(t, doJSON(t, ts, http.MethodGet, "/api/preview", ""), http.StatusConflict, "no_form")
	expectStatus(t, doJSON(t, ts, http.MethodPut, "/api/selection", `{"groupId":1}`), http.StatusOK)

	res := doJSON(t, ts, http.MethodGet, "/api/preview", "")
	expectStatus(t, res, http.StatusOK)
	var state struct {
		GroupID  int64              `json:"groupId"`
		Controls []compiler.Control `json:"controls"`
	}
	res.decode(t, &state)
	if state.GroupID != 1 || len(state.Controls) != 5 {
		t.Fatalf("preview state: %+v", state)
	}

	res = doJSON(t, ts, http.MethodPut, "/api/preview/values/field-2", `{"value":"not-an-email"}`)
	expectStatus(t, res, http.StatusOK)
	var control compiler.Control
	res.decode(t, &control)
	if control.Value != "not-an-email" {
		t.Fatalf("control value: %v", control.Value)
	}
	expectProblem(t, doJSON(t, ts, http.MethodPut, "/api/preview/values/field-99", `{"value":"x"}`), http.StatusNotFound, "not_found")

	problem := expectProblem(t, doJSON(t, ts, http.MethodPost, "/api/preview/submit", ""), http.StatusUnprocessableEntity, "validation_error")
	if errs, _ := problem["errors"].(map[string]any); len(errs) != 2 {
		t.Fatalf("errors: %v", problem["errors"])
	}

	res = do(t, ts, http.MethodPut, "/api/preview/files/5?name=pixel.png", "image/png", bytes.NewReader(pngBytes))
	expectStatus(t, res, http.StatusOK)
	var handle struct {
		URL  string `json:"url"`
		MIME string `json:"mime"`
		Name string `json:"name"`
	}
	res.decode(t, &handle)
	if !strings.HasPrefix(handle.URL, BlobPrefix) || handle.MIME != "image/png" || handle.Name != "pixel.png" {
		t.Fatalf("handle: %+v", handle)
	}

	res = do(t, ts, http.MethodGet, handle.URL, "", nil)
	expectStatus(t, res, http.StatusOK)
	if !bytes.Equal(res.body, pngBytes) || res.header.Get("Content-Type") != "image/png" {
		t.Fatalf("blob served %q as %q", res.body, res.header.Get("Content-Type"))
	}

	res = doJSON(t, ts, http.MethodGet, "/api/preview/render", "")
	expectStatus(t, res, http.StatusOK)
	if !strings.Contains(string(res.body), handle.URL) {
		t.Fatalf("render should include the preview url:\n%s", res.body)
	}

	expectProblem(t, do(t, ts, http.MethodPut, "/api/preview/files/5", "text/plain", strings.NewReader("hello")), http.StatusUnsupportedMediaType, "unsupported_type")
	res = do(t, ts, http.MethodGet, handle.URL, "", nil)
	expectStatus(t, res, http.StatusOK)
	if !bytes.Equal(res.body, pngBytes) {
		t.Fatalf("rejected upload must keep the previous blob, got %q", res.body)
	}
	expectProblem(t, do(t, ts, http.MethodPut, "/api/preview/files/1", "image/png", bytes.NewReader(pngBytes)), http.StatusNotFound, "not_found")

	expectStatus(t, doJSON(t, ts, http.MethodPut, "/api/preview/values/field-1", `{"value":"Ada"}`), http.StatusOK)
	expectStatus(t, doJSON(t, ts, http.MethodPut, "/api/preview/values/field-2", `{"value":"ada@example.com"}`), http.StatusOK)
	expectStatus(t, doJSON(t, ts, http.MethodDelete, "/api/preview/files/5", ""), http.StatusNoContent)
	expectStatus(t, do(t, ts, http.MethodGet, handle.URL, "", nil), http.StatusNotFound)

	res = doJSON(t, ts, http.MethodPost, "/api/preview/submit", "")
	expectStatus(t, res, http.StatusCreated)
	var values map[string]any
	res.decode(t, &values)
	if values["field-1"] != "Ada" || values["field-5"] != nil {
		t.Fatalf("submitted: %v", values)
	}
}

func TestPreviewValue_InvalidInput(t *testing.T) {
	_, ts := newTestServer(t, testsupport.Groups()...)
	expectStatus(t, doJSON(t, ts, http.MethodPut, "/api/selection", `{"groupId":2}`), http.StatusOK)

	problem := expectProblem(t,
		doJSON(t, ts, http.MethodPut, "/api/preview/values/field-6", `{"value":"seven"}`),
		http.StatusUnprocessableEntity, "validation_error")
	if _, ok := problem["errors"].(map[string]any)["field-6"]; !ok {
		t.Fatalf("errors: %v", problem)
	}
}

func TestEvents(t *testing.T) {
	st, ts := newTestServer(t, testsupport.ContactGroup())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/events", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	type groupsEvent struct {
		Type string             `json:"type"`
		Data []model.FieldGroup `json:"data"`
	}
	type selectedEvent struct {
		Type string            `json:"type"`
		Data *model.FieldGroup `json:"data"`
	}

	var groups groupsEvent
	if err := wsjson.Read(ctx, conn, &groups); err != nil {
		t.Fatalf("read groups: %v", err)
	}
	if groups.Type != EventGroups || len(groups.Data) != 1 {
		t.Fatalf("initial groups: %+v", groups)
	}
	var selected selectedEvent
	if err := wsjson.Read(ctx, conn, &selected); err != nil {
		t.Fatalf("read selected: %v", err)
	}
	if selected.Type != EventSelected || selected.Data != nil {
		t.Fatalf("initial selection: %+v", selected)
	}

	st.SelectGroup(1)
	if err := wsjson.Read(ctx, conn, &selected); err != nil {
		t.Fatalf("read selection update: %v", err)
	}
	if selected.Type != EventSelected || selected.Data == nil || selected.Data.ID != 1 {
		t.Fatalf("selection update: %+v", selected)
	}
	var rebuilt struct {
		Type string `json:"type"`
		Data struct {
			GroupID  int64              `json:"groupId"`
			Controls []compiler.Control `json:"controls"`
		} `json:"data"`
	}
	if err := wsjson.Read(ctx, conn, &rebuilt); err != nil {
		t.Fatalf("read preview: %v", err)
	}
	if rebuilt.Type != EventPreview || rebuilt.Data.GroupID != 1 || len(rebuilt.Data.Controls) != 5 {
		t.Fatalf("preview event: %+v", rebuilt)
	}

	st.AddGroup("Feedback", "")
	if err := wsjson.Read(ctx, conn, &groups); err != nil {
		t.Fatalf("read groups update: %v", err)
	}
	if groups.Type != EventGroups || len(groups.Data) != 2 {
		t.Fatalf("groups update: %+v", groups)
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := newHub(zap.NewNop())
	c := h.register()
	for i := 0; i < clientBuffer; i++ {
		h.publishGroups(nil)
	}
	if _, ok := h.clients[c]; ok {
		t.Fatalf("slow client should be dropped")
	}
	drained := 0
	for range c.events {
		drained++
	}
	if drained != clientBuffer {
		t.Fatalf("drained %d events", drained)
	}

	h.closeAll()
	if h.register() != nil {
		t.Fatalf("closed hub must refuse clients")
	}
}
