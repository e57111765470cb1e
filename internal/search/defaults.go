// Package search runs the bounded, feedback-guided candidate search for one
// subtask at a time.
package search

// DefaultLogicMarkers are substrings that indicate a declared unit of
// executable logic.
var DefaultLogicMarkers = []string{
	"func ",
	"def ",
	"fn ",
	"class ",
	"return",
	"if ",
	"for ",
	"while ",
	"=>",
}

// DefaultPlaceholderMarkers are substrings that indicate unfinished content.
// Matching is case-insensitive.
var DefaultPlaceholderMarkers = []string{
	"TODO",
	"FIXME",
	"XXX",
	"not implemented",
	"placeholder",
	"fill in",
	"your code here",
	"implement me",
}

// DefaultExportMarkers are substrings that directly indicate an externally
// usable symbol in languages with explicit export keywords. Capitalized Go
// declarations are detected separately.
var DefaultExportMarkers = []string{
	"export ",
	"pub ",
	"public ",
	"module.exports",
	"__all__",
}

// DefaultCommentMarkers are substrings that indicate structured commentary.
var DefaultCommentMarkers = []string{
	"//",
	"/*",
	"# ",
	"\"\"\"",
}

// DefaultErrorMarkers are substrings that indicate explicit failure handling.
// Matching is case-insensitive.
var DefaultErrorMarkers = []string{
	"if err",
	"error",
	"try",
	"catch",
	"except",
	"raise",
	"panic(",
	"result<",
}

// DefaultLowEffortMarkers are phrases that signal the generator hand-waved
// part of the work. Matching is case-insensitive.
var DefaultLowEffortMarkers = []string{
	"left as an exercise",
	"omitted for brevity",
	"rest of the implementation",
	"and so on",
	"you get the idea",
	"similar logic applies",
	"etc.",
}

// DefaultMinBodyLength is the smallest candidate body, in bytes, that avoids
// the short-body score penalty.
const DefaultMinBodyLength = 80
