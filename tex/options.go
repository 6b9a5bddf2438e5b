// Package tex describes the inputs of the external LaTeX-to-SVG renderer and
// the collaborator interfaces the cache sits in front of. Nothing in this
// module renders or parses TeX itself.
package tex

// ConversionOptions controls how the renderer converts a formula to SVG.
type ConversionOptions struct {
	// Display renders the formula in display (block) mode instead of inline.
	Display bool `json:"display"`

	// Em is the size of an em in pixels.
	Em float64 `json:"em"`

	// Ex is the size of an ex in pixels.
	Ex float64 `json:"ex"`

	// ContainerWidth is the width of the surrounding container in pixels.
	ContainerWidth float64 `json:"containerWidth"`

	// LineWidth is the line-breaking width in pixels.
	LineWidth float64 `json:"lineWidth"`

	// Scale is the scaling factor applied to the output.
	Scale float64 `json:"scale"`
}

// DefaultConversionOptions returns the renderer's documented defaults.
func DefaultConversionOptions() ConversionOptions {
	return ConversionOptions{
		Em:             16,
		Ex:             8,
		ContainerWidth: 80 * 16,
		LineWidth:      1_000_000,
		Scale:          1,
	}
}

// TagSide is the side equation tags are placed on.
type TagSide string

const (
	TagSideRight TagSide = "right"
	TagSideLeft  TagSide = "left"
)

// Tags selects which equations are numbered.
type Tags string

const (
	TagsNone Tags = "none"
	TagsAMS  Tags = "ams"
	TagsAll  Tags = "all"
)

// InputOptions configures the TeX input processor.
type InputOptions struct {
	Packages            []string            `json:"packages"`
	InlineMath          [][2]string         `json:"inlineMath"`
	DisplayMath         [][2]string         `json:"displayMath"`
	ProcessEscapes      bool                `json:"processEscapes"`
	ProcessEnvironments bool                `json:"processEnvironments"`
	ProcessRefs         bool                `json:"processRefs"`
	Digits              string              `json:"digits"`
	Tags                Tags                `json:"tags"`
	TagSide             TagSide             `json:"tagSide"`
	TagIndent           string              `json:"tagIndent"`
	UseLabelIDs         bool                `json:"useLabelIds"`
	MaxMacros           int                 `json:"maxMacros"`
	MaxBuffer           int                 `json:"maxBuffer"`
	BaseURL             string              `json:"baseURL,omitempty"`
	Macros              map[string][]string `json:"macros,omitempty"`
}

// DefaultInputOptions returns the TeX input processor defaults.
func DefaultInputOptions() InputOptions {
	return InputOptions{
		Packages:            []string{"base", "ams", "newcommand", "noundefined", "require", "autoload", "configmacros"},
		InlineMath:          [][2]string{{`\(`, `\)`}},
		DisplayMath:         [][2]string{{"$$", "$$"}, {`\[`, `\]`}},
		ProcessEscapes:      true,
		ProcessEnvironments: true,
		ProcessRefs:         true,
		Digits:              `^(?:[0-9]+(?:\{,\}[0-9]{3})*(?:\.[0-9]*)?|\.[0-9]+)`,
		Tags:                TagsNone,
		TagSide:             TagSideRight,
		TagIndent:           "0.8em",
		UseLabelIDs:         true,
		MaxMacros:           10_000,
		MaxBuffer:           5 * 1024,
	}
}
