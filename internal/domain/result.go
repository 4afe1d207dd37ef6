package domain

import "time"

// QualityCheckResults are informational post-hoc checks; they never gate delivery.
type QualityCheckResults struct {
	Resolution bool `json:"resolution"`
	Ratio      bool `json:"ratio"`
	Margins    bool `json:"margins"`
	Text       bool `json:"text"`
}

// PipelineResult is committed atomically at the end of one successful run.
type PipelineResult struct {
	Master    Image               `json:"master"`
	Final     Image               `json:"final"`
	Prompt    string              `json:"prompt"`
	TextStyle TextStyle           `json:"textStyle"`
	Quality   QualityCheckResults `json:"quality"`
	Options   GenerationOptions   `json:"options"`
	CreatedAt time.Time           `json:"createdAt"`
}

func (r PipelineResult) Clone() PipelineResult {
	out := r
	out.Master = r.Master.Clone()
	out.Final = r.Final.Clone()
	out.Options = r.Options.Clone()
	return out
}

// DerivedImage is one per-format adaptation entry. Image is nil until the
// branch succeeds; a failed branch finalizes with Image nil and InProgress false.
type DerivedImage struct {
	Format     Format        `json:"format"`
	Image      *Image        `json:"image"`
	InProgress bool          `json:"inProgress"`
	Text       TextSelection `json:"text"`
	Crop       *CropHint     `json:"crop,omitempty"`
	Error      string        `json:"error,omitempty"`
}

func (d DerivedImage) Clone() DerivedImage {
	out := d
	if d.Image != nil {
		img := d.Image.Clone()
		out.Image = &img
	}
	if d.Crop != nil {
		c := *d.Crop
		out.Crop = &c
	}
	return out
}

// HistoryEntry is an immutable snapshot of one successful run.
type HistoryEntry struct {
	ID        string               `json:"id"`
	Timestamp time.Time            `json:"timestamp"`
	Image     Image                `json:"image"`
	Master    *Image               `json:"master,omitempty"`
	Options   GenerationOptions    `json:"options"`
	Prompt    string               `json:"prompt"`
	Quality   *QualityCheckResults `json:"quality,omitempty"`
	TextStyle *TextStyle           `json:"textStyle,omitempty"`
}
