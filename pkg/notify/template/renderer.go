package template

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Vars is the typed variable bag for template rendering. Values must be
// string, bool, int, int64, float64, or []string; anything else renders
// as empty and logs a warning.
type Vars map[string]any

// Rendered is the channel-agnostic output of a render.
type Rendered struct {
	// Subject is the rendered subject line (may be empty for channels
	// without one).
	Subject string

	// Body is the rendered message body.
	Body string
}

// Renderer fills templates with variables. Rendering is a pure function of
// (template, vars): no I/O, no shared mutable state, and identical inputs
// produce byte-identical output, so it is safe to call concurrently from
// multiple dispatch goroutines.
//
// Missing variables render as empty strings with a logged warning; a
// partial render is preferable to dropping a notification.
type Renderer struct {
	templates map[string]Template
	log       *slog.Logger
}

// NewRenderer creates a renderer over the given templates, keyed by ID.
// Passing nil uses the built-in template set.
func NewRenderer(templates []Template, logger *slog.Logger) *Renderer {
	if templates == nil {
		templates = BuiltinTemplates()
	}
	if logger == nil {
		logger = slog.Default()
	}

	byID := make(map[string]Template, len(templates))
	for _, t := range templates {
		byID[t.ID] = t
	}
	return &Renderer{
		templates: byID,
		log:       logger.With("component", "notify.template"),
	}
}

// Render fills the named template with variables. Unknown template IDs and
// missing variables degrade to blanks rather than failing; the only logged
// conditions are the warnings, never an error to the caller.
//
// Supported syntax:
//
//	{{key}}                      substitute a variable
//	{{#if key}}...{{/if}}        emit the block when key is truthy
//	{{#each key}}...{{/each}}    repeat the block per element; {{.}} is
//	                             the current element
//
// Truthiness: non-empty string, non-empty list, boolean true, or non-zero
// number.
func (r *Renderer) Render(templateID string, vars Vars) Rendered {
	tpl, ok := r.templates[templateID]
	if !ok {
		r.log.Warn("unknown template, rendering empty", "template", templateID)
		return Rendered{}
	}

	for _, key := range tpl.Required {
		if _, ok := vars[key]; !ok {
			r.log.Warn("missing template variable, rendering blank",
				"template", templateID,
				"variable", key,
			)
		}
	}

	return Rendered{
		Subject: r.renderText(tpl.ID, tpl.Subject, vars, ""),
		Body:    r.renderText(tpl.ID, tpl.Body, vars, ""),
	}
}

// renderText expands one template string. current carries the element value
// inside an each-block, substituted for "{{.}}".
func (r *Renderer) renderText(id, text string, vars Vars, current string) string {
	var sb strings.Builder

	for {
		open := strings.Index(text, "{{")
		if open < 0 {
			sb.WriteString(text)
			return sb.String()
		}
		sb.WriteString(text[:open])
		text = text[open:]

		close := strings.Index(text, "}}")
		if close < 0 {
			// Unterminated tag, emit literally.
			sb.WriteString(text)
			return sb.String()
		}

		tag := strings.TrimSpace(text[2:close])
		rest := text[close+2:]

		switch {
		case strings.HasPrefix(tag, "#if "):
			key := strings.TrimSpace(tag[4:])
			block, after, ok := splitBlock(rest, "if")
			if !ok {
				r.log.Warn("unterminated if block", "template", id, "variable", key)
				sb.WriteString(text[:close+2])
				text = rest
				continue
			}
			if truthy(vars[key]) {
				sb.WriteString(r.renderText(id, block, vars, current))
			}
			text = after

		case strings.HasPrefix(tag, "#each "):
			key := strings.TrimSpace(tag[6:])
			block, after, ok := splitBlock(rest, "each")
			if !ok {
				r.log.Warn("unterminated each block", "template", id, "variable", key)
				sb.WriteString(text[:close+2])
				text = rest
				continue
			}
			for _, item := range listValue(vars[key]) {
				sb.WriteString(r.renderText(id, block, vars, item))
			}
			text = after

		case tag == ".":
			sb.WriteString(current)
			text = rest

		default:
			val, ok := vars[tag]
			if !ok {
				r.log.Warn("missing template variable, rendering blank",
					"template", id,
					"variable", tag,
				)
				text = rest
				continue
			}
			sb.WriteString(stringValue(val, func() {
				r.log.Warn("unsupported template variable type, rendering blank",
					"template", id,
					"variable", tag,
					"type", fmt.Sprintf("%T", val),
				)
			}))
			text = rest
		}
	}
}

// splitBlock finds the end tag for a block kind ("if" or "each"), honoring
// nested blocks of the same kind. Returns the block interior, the text
// after the end tag, and whether the end tag was found.
func splitBlock(text, kind string) (block, after string, ok bool) {
	openTag := "{{#" + kind + " "
	closeTag := "{{/" + kind + "}}"

	depth := 0
	pos := 0
	for {
		nextOpen := strings.Index(text[pos:], openTag)
		nextClose := strings.Index(text[pos:], closeTag)
		if nextClose < 0 {
			return "", "", false
		}
		if nextOpen >= 0 && nextOpen < nextClose {
			depth++
			pos += nextOpen + len(openTag)
			continue
		}
		if depth == 0 {
			end := pos + nextClose
			return text[:end], text[end+len(closeTag):], true
		}
		depth--
		pos += nextClose + len(closeTag)
	}
}

// truthy implements template truthiness: non-empty string, non-empty list,
// boolean true, or non-zero number.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case []string:
		return len(val) > 0
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return false
	}
}

// listValue coerces a variable to a list for each-blocks.
func listValue(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	default:
		return nil
	}
}

// stringValue renders a scalar variable. onBadType is invoked for values
// outside the supported set.
func stringValue(v any, onBadType func()) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []string:
		return strings.Join(val, ", ")
	default:
		onBadType()
		return ""
	}
}
