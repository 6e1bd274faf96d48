package html_test

import (
	"context"
	"io/fs"
	"os"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formbuilder/pkg/compiler"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/render"
	"github.com/goliatone/go-formbuilder/pkg/render/template/gotemplate"
	"github.com/goliatone/go-formbuilder/pkg/renderers/html"
	"github.com/goliatone/go-formbuilder/pkg/testsupport"
	"github.com/goliatone/go-formbuilder/pkg/widgets"
)

func renderString(t *testing.T, r *html.Renderer, form *compiler.Form, opts render.RenderOptions) string {
	t.Helper()

	out, err := r.Render(context.Background(), form, opts)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return string(out)
}

func assertContains(t *testing.T, got string, want ...string) {
	t.Helper()
	for _, fragment := range want {
		if !strings.Contains(got, fragment) {
			t.Fatalf("expected output to contain %q\n%s", fragment, got)
		}
	}
}

func TestRenderer_Contract(t *testing.T) {
	r, err := html.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	if r.Name() != "html" {
		t.Fatalf("name: %q", r.Name())
	}
	if !strings.HasPrefix(r.ContentType(), "text/html") {
		t.Fatalf("content type: %q", r.ContentType())
	}
}

func TestRenderer_ContactForm(t *testing.T) {
	r, err := html.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	form := compiler.Compile(testsupport.ContactGroup())

	got := renderString(t, r, form, render.RenderOptions{Action: "/submit"})

	assertContains(t, got,
		`action="/submit"`,
		`method="POST"`,
		`enctype="multipart/form-data"`,
		`<h2 class="fb-form__title">Contact</h2>`,
		`Reach out to <b>us</b>`,
		`<input type="hidden" name="_group" value="1">`,
		`type="text" id="fb-field-1" name="field-1"`,
		`placeholder="Ada Lovelace"`,
		`type="email" id="fb-field-2" name="field-2"`,
		`<select class="fb-select" id="fb-field-3" name="field-3">`,
		`<option value="Sales">Sales</option>`,
		`<textarea class="fb-textarea" id="fb-field-4"`,
		`type="file" id="fb-field-5" name="field-5" accept="image/*"`,
		`<button type="submit" class="fb-form__submit">Submit</button>`,
	)

	first := strings.Index(got, `name="field-1"`)
	last := strings.Index(got, `name="field-5"`)
	if first < 0 || last < first {
		t.Fatalf("expected controls in element order")
	}
}

func TestRenderer_SurveyWidgets(t *testing.T) {
	r, err := html.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	form := compiler.Compile(testsupport.SurveyGroup())
	if err := form.SetValue("field-11", []string{"Phone"}); err != nil {
		t.Fatalf("set value: %v", err)
	}

	got := renderString(t, r, form, render.RenderOptions{})

	assertContains(t, got,
		`type="number"`,
		`step="1"`,
		`type="date"`,
		`type="time"`,
		`type="datetime-local"`,
		`role="radiogroup" aria-labelledby="fb-field-10-label"`,
		`<span class="fb-field__label" id="fb-field-10-label">Rating`,
		`type="checkbox" name="field-11" value="Phone" checked`,
	)
	if strings.Contains(got, `enctype=`) {
		t.Fatalf("did not expect multipart encoding without upload controls")
	}
}

func TestRenderer_EscapesAndSanitises(t *testing.T) {
	r, err := html.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	group := model.FieldGroup{
		ID:          3,
		Name:        `<script>alert(1)</script>`,
		Description: `Hello <script>alert(1)</script><a href="https://example.com">link</a>`,
		Elements: []model.FieldDefinition{
			{ID: 1, Type: model.FieldTypeSingleLineText, Label: `"quoted" <b>`},
		},
	}

	got := renderString(t, r, compiler.Compile(group), render.RenderOptions{})

	if strings.Contains(got, "<script>") {
		t.Fatalf("script tag leaked into output\n%s", got)
	}
	assertContains(t, got,
		`&lt;script&gt;alert(1)&lt;/script&gt;`,
		`&lt;b&gt;`,
		`nofollow`,
	)
}

func TestRenderer_ErrorsAndPreview(t *testing.T) {
	r, err := html.New(html.WithAccept("image/png", "image/jpeg"))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	form := compiler.Compile(testsupport.ContactGroup())
	if _, err := form.Submit(); err == nil {
		t.Fatalf("expected submit to fail")
	}

	got := renderString(t, r, form, render.RenderOptions{
		FormErrors:  []string{"Server unavailable"},
		PreviewURLs: map[int64]string{5: "blob:123"},
	})

	assertContains(t, got,
		`fb-field--invalid`,
		`aria-invalid="true"`,
		`<li>This field is required</li>`,
		`<li>Server unavailable</li>`,
		`accept="image/png,image/jpeg"`,
		`<img class="fb-file__preview" src="blob:123" alt="Preview">`,
	)
}

func TestRenderer_WidgetOverride(t *testing.T) {
	r, err := html.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	registry := widgets.NewRegistry()
	registry.Override(4, widgets.WidgetTextInput)

	got := renderString(t, r, compiler.Compile(testsupport.ContactGroup()), render.RenderOptions{Widgets: registry})

	assertContains(t, got, `type="text" id="fb-field-4" name="field-4"`)
	if strings.Contains(got, `id="fb-field-4" name="field-4" rows`) {
		t.Fatalf("expected override to replace textarea")
	}
}

func TestRenderer_UnknownWidgetTemplate(t *testing.T) {
	r, err := html.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	registry := widgets.NewRegistry()
	registry.Override(1, "signature-pad")

	_, err = r.Render(context.Background(), compiler.Compile(testsupport.ContactGroup()), render.RenderOptions{Widgets: registry})
	if err == nil {
		t.Fatalf("expected error for widget without template")
	}
}

func TestRenderer_Standalone(t *testing.T) {
	r, err := html.New(html.WithStandalone())
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	got := renderString(t, r, compiler.Compile(testsupport.ContactGroup()), render.RenderOptions{Locale: "en"})

	assertContains(t, got, "<!DOCTYPE html>", `<html lang="en">`, "<title>Contact</title>", ".fb-form {")
}

func TestRenderer_CancelledContext(t *testing.T) {
	r, err := html.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Render(ctx, compiler.Compile(testsupport.ContactGroup()), render.RenderOptions{}); err == nil {
		t.Fatalf("expected cancelled context error")
	}
}

const customFormTemplate = `<form class="custom" data-group="{{ form.GroupID }}">{% for field in fields %}{{ field|safe }}{% endfor %}</form>`

// overlayTemplates copies the bundled templates and replaces the form
// template.
func overlayTemplates(t *testing.T) fstest.MapFS {
	t.Helper()

	overlay := fstest.MapFS{}
	err := fs.WalkDir(html.TemplatesFS(), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(html.TemplatesFS(), path)
		if err != nil {
			return err
		}
		overlay[path] = &fstest.MapFile{Data: data}
		return nil
	})
	if err != nil {
		t.Fatalf("copy templates: %v", err)
	}
	overlay["templates/form.tmpl"] = &fstest.MapFile{Data: []byte(customFormTemplate)}
	return overlay
}

func TestRenderer_TemplateOverrides(t *testing.T) {
	overlay := overlayTemplates(t)
	dir := t.TempDir()
	if err := os.CopyFS(dir, overlay); err != nil {
		t.Fatalf("write templates: %v", err)
	}
	engine, err := gotemplate.New(gotemplate.WithFS(overlay))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	cases := map[string]html.Option{
		"fs":       html.WithTemplatesFS(overlay),
		"dir":      html.WithTemplatesDir(dir),
		"renderer": html.WithTemplateRenderer(engine),
	}
	for name, opt := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := html.New(opt)
			if err != nil {
				t.Fatalf("new renderer: %v", err)
			}
			got := renderString(t, r, compiler.Compile(testsupport.ContactGroup()), render.RenderOptions{})
			assertContains(t, got, `<form class="custom" data-group="1">`, `name="field-1"`)
		})
	}
}

func TestRenderer_Policy(t *testing.T) {
	form := compiler.Compile(testsupport.ContactGroup())

	r, err := html.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	assertContains(t, renderString(t, r, form, render.RenderOptions{}), "Reach out to <b>us</b>")

	strict, err := html.New(html.WithPolicy(bluemonday.StrictPolicy()))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	got := renderString(t, strict, form, render.RenderOptions{})
	assertContains(t, got, "Reach out to us")
	if strings.Contains(got, "<b>us</b>") {
		t.Fatalf("strict policy kept markup\n%s", got)
	}
}
