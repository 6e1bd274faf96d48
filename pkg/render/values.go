package render

import (
	"github.com/goliatone/go-formbuilder/pkg/compiler"
	"github.com/goliatone/go-formbuilder/pkg/filepreview"
)

// ExportValues converts submitted values into serializable scalars: times
// become their input layout and upload handles their metadata. Keys without
// a control are dropped.
func ExportValues(form *compiler.Form, values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for _, control := range form.Controls() {
		value, ok := values[control.Key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case filepreview.Handle:
			out[control.Key] = FileInfo{Name: v.Name, Size: v.Size, MIME: v.MIME}
		case FileInfo, []string, int64, string, nil:
			out[control.Key] = v
		default:
			out[control.Key] = compiler.FormatValue(control.Type, v)
		}
	}
	return out
}

// FileInfo describes an uploaded file without its content.
type FileInfo struct {
	Name string `json:"name"`
	Size int    `json:"size"`
	MIME string `json:"mime"`
}
