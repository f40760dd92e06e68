package provider

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// selectorPattern is the allow-listed character set for caller-supplied CSS
// selectors: alphanumerics, whitespace, and CSS selector punctuation.
// Anything else is rejected outright rather than escaped; this is an
// injection defense on the generated script payload, not a syntax check.
var selectorPattern = regexp.MustCompile(`^[a-zA-Z0-9\s.#_\-\[\]='":()>+~*,^$|]+$`)

// sanitizeSelectors drops selectors containing disallowed characters.
// Offenders are dropped silently from the list; callers that require at
// least one valid selector check the result length.
func sanitizeSelectors(selectors []string) []string {
	out := make([]string, 0, len(selectors))
	for _, sel := range selectors {
		sel = strings.TrimSpace(sel)
		if sel == "" || !selectorPattern.MatchString(sel) {
			continue
		}
		out = append(out, sel)
	}
	return out
}

// scriptError is a page-script failure reported through the evaluation
// envelope, as opposed to a transport failure.
type scriptError struct {
	code    string
	message string
}

func (e *scriptError) Error() string {
	return fmt.Sprintf("page script error (%s): %s", e.code, e.message)
}

type evalEnvelope struct {
	OK           bool            `json:"ok"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// parseEnvelope decodes the structured result every generated script
// returns. A failed envelope becomes a scriptError.
func parseEnvelope(raw string, out any) error {
	var env evalEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return fmt.Errorf("invalid evaluation envelope: %w", err)
	}
	if !env.OK {
		code := env.ErrorCode
		if code == "" {
			code = "SCRIPT_FAILURE"
		}
		return &scriptError{code: code, message: env.ErrorMessage}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("invalid evaluation data: %w", err)
	}
	return nil
}

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func jsJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// wrapJSEval wraps a script body in an IIFE that catches page exceptions
// and reports them through the envelope instead of bubbling a raw throw.
func wrapJSEval(body string) string {
	return `(function(){
try {
` + body + `
} catch (err) {
return JSON.stringify({ok:false,error_code:"SCRIPT_FAILURE",error_message:String(err && err.message || err)});
}
})()`
}

// elementStyleProps is the fixed allow-list of visually relevant computed
// properties captured per element.
var elementStyleProps = []string{
	"display", "visibility", "position", "width", "height",
	"margin", "padding", "border", "background-color", "color",
	"font-size", "font-weight", "z-index", "opacity", "overflow",
}

// cssUninterestingDefaults are values skipped when a CSS capture does not
// ask for the full computed set.
var cssUninterestingDefaults = []string{
	"auto", "normal", "none", "0px", "transparent", "rgba(0, 0, 0, 0)",
}

// cssInheritedProps is the small set of typically-inherited properties
// reported when a CSS capture walks ancestor elements.
var cssInheritedProps = []string{
	"color", "font-family", "font-size", "font-weight",
	"line-height", "letter-spacing", "text-align", "visibility",
}

const elementTextCap = 200

// maxElementMatches bounds introspection per selector so response size and
// script execution time stay bounded.
const maxElementMatches = 10

// jsCaptureHTML builds the HTML serialization payload. The three modes are
// mutually exclusive, in priority order: selector mode, strip mode,
// verbatim mode.
func jsCaptureHTML(opts HTMLCaptureOptions, selectors []string) string {
	if len(selectors) > 0 {
		return wrapJSEval(`
var parts = [];
var selectors = ` + jsJSON(selectors) + `;
for (var i = 0; i < selectors.length; i++) {
  var matches;
  try { matches = document.querySelectorAll(selectors[i]); } catch (_) { continue; }
  for (var j = 0; j < matches.length; j++) {
    parts.push(matches[j].outerHTML);
  }
}
return JSON.stringify({ok:true,data:{html:parts.join("\n")}});`)
	}

	if !opts.IncludeScripts || !opts.IncludeStyles {
		return wrapJSEval(`
var root = document.documentElement.cloneNode(true);
var strip = function(sel) {
  var nodes = root.querySelectorAll(sel);
  for (var i = 0; i < nodes.length; i++) { nodes[i].parentNode.removeChild(nodes[i]); }
};
if (!` + jsJSON(opts.IncludeScripts) + `) {
  strip("script");
}
if (!` + jsJSON(opts.IncludeStyles) + `) {
  strip("style");
  strip("link[rel=\"stylesheet\"]");
  var styled = root.querySelectorAll("[style]");
  for (var k = 0; k < styled.length; k++) { styled[k].removeAttribute("style"); }
}
return JSON.stringify({ok:true,data:{html:"<!DOCTYPE html>\n" + root.outerHTML}});`)
	}

	return wrapJSEval(`
return JSON.stringify({ok:true,data:{html:document.documentElement.outerHTML}});`)
}

// jsCaptureCSS builds the computed-style payload. Selector-level failures
// become inline CSS comments; they never abort the whole capture.
func jsCaptureCSS(opts CSSCaptureOptions, selectors []string) string {
	return wrapJSEval(`
var selectors = ` + jsJSON(selectors) + `;
var includeComputed = ` + jsJSON(opts.IncludeComputed) + `;
var includeInherited = ` + jsJSON(opts.IncludeInherited) + `;
var boring = ` + jsJSON(cssUninterestingDefaults) + `;
var inheritedProps = ` + jsJSON(cssInheritedProps) + `;
var out = [];
for (var i = 0; i < selectors.length; i++) {
  var sel = selectors[i];
  var matches;
  try { matches = document.querySelectorAll(sel); } catch (err) {
    out.push("/* error for " + JSON.stringify(sel) + ": " + String(err && err.message || err) + " */");
    continue;
  }
  if (matches.length === 0) {
    out.push("/* no matches for " + JSON.stringify(sel) + " */");
    continue;
  }
  var el = matches[0];
  var cs = window.getComputedStyle(el);
  var lines = [sel + " {"];
  for (var p = 0; p < cs.length; p++) {
    var prop = cs[p];
    var val = cs.getPropertyValue(prop);
    if (!val) continue;
    if (!includeComputed && boring.indexOf(val) !== -1) continue;
    lines.push("  " + prop + ": " + val + ";");
  }
  lines.push("}");
  out.push(lines.join("\n"));
  if (includeInherited) {
    var parent = el.parentElement;
    while (parent && parent !== document.body) {
      var pcs = window.getComputedStyle(parent);
      var plines = ["/* inherited from " + parent.tagName.toLowerCase() + " */"];
      for (var q = 0; q < inheritedProps.length; q++) {
        var pv = pcs.getPropertyValue(inheritedProps[q]);
        if (pv) plines.push("  " + inheritedProps[q] + ": " + pv + "; /* inherited */");
      }
      out.push(plines.join("\n"));
      parent = parent.parentElement;
    }
  }
}
return JSON.stringify({ok:true,data:{css:out.join("\n\n")}});`)
}

// jsExtractElements builds the structured element introspection payload.
// Per-element failures become error-marker entries the caller filters out.
func jsExtractElements(selectors []string) string {
	return wrapJSEval(`
var selectors = ` + jsJSON(selectors) + `;
var styleProps = ` + jsJSON(elementStyleProps) + `;
var textCap = ` + jsJSON(elementTextCap) + `;
var maxMatches = ` + jsJSON(maxElementMatches) + `;
var results = [];
for (var i = 0; i < selectors.length; i++) {
  var sel = selectors[i];
  var matches;
  try { matches = document.querySelectorAll(sel); } catch (err) {
    results.push({selector: sel, error: String(err && err.message || err)});
    continue;
  }
  if (matches.length === 0) {
    results.push({selector: sel, error: "no matches"});
    continue;
  }
  var limit = Math.min(matches.length, maxMatches);
  for (var j = 0; j < limit; j++) {
    try {
      var el = matches[j];
      var cs = window.getComputedStyle(el);
      var styles = {};
      for (var s = 0; s < styleProps.length; s++) {
        var v = cs.getPropertyValue(styleProps[s]);
        if (v) styles[styleProps[s]] = v;
      }
      var attrs = {};
      for (var a = 0; a < el.attributes.length; a++) {
        attrs[el.attributes[a].name] = el.attributes[a].value;
      }
      var rect = el.getBoundingClientRect();
      var text = (el.textContent || "").trim();
      if (text.length > textCap) text = text.slice(0, textCap) + "...";
      results.push({
        selector: sel,
        tag_name: el.tagName.toLowerCase(),
        text: text,
        styles: styles,
        attributes: attrs,
        box: {
          x: Math.round(rect.x), y: Math.round(rect.y),
          width: Math.round(rect.width), height: Math.round(rect.height)
        },
        visible: rect.width > 0 && rect.height > 0 &&
          cs.getPropertyValue("visibility") !== "hidden" &&
          cs.getPropertyValue("display") !== "none",
        scroll_x: el.scrollLeft, scroll_y: el.scrollTop
      });
    } catch (err) {
      results.push({selector: sel, error: String(err && err.message || err)});
    }
  }
}
return JSON.stringify({ok:true,data:{elements:results}});`)
}

// jsScroll builds the scroll execution payload. The selector, when
// present, has already been sanitized.
func jsScroll(opts ScrollOptions) string {
	behavior := `"auto"`
	if opts.Smooth {
		behavior = `"smooth"`
	}

	var action string
	switch opts.ScrollType {
	case ScrollPixels:
		action = `window.scrollBy({left: ` + jsJSON(opts.X) + `, top: ` + jsJSON(opts.Y) + `, behavior: behavior});`
	case ScrollCoordinates:
		action = `window.scrollTo({left: ` + jsJSON(opts.X) + `, top: ` + jsJSON(opts.Y) + `, behavior: behavior});`
	case ScrollViewport:
		dir := "1"
		if opts.Y < 0 {
			dir = "-1"
		}
		action = `window.scrollBy({top: ` + dir + ` * window.innerHeight, behavior: behavior});`
	case ScrollElement:
		action = `var el = document.querySelector(` + jsString(opts.Selector) + `);
if (!el) { throw new Error("no element matches selector"); }
el.scrollIntoView({behavior: behavior, block: "center"});`
	case ScrollTop:
		action = `window.scrollTo({left: 0, top: 0, behavior: behavior});`
	case ScrollBottom:
		action = `window.scrollTo({left: 0, top: document.documentElement.scrollHeight, behavior: behavior});`
	}

	return wrapJSEval(`
var behavior = ` + behavior + `;
` + action + `
return JSON.stringify({ok:true,data:{scroll_x:window.scrollX,scroll_y:window.scrollY}});`)
}

// prettifyHTML applies a best-effort line break between adjacent tag
// boundaries. It never fails; at worst the input comes back unchanged.
func prettifyHTML(s string) string {
	return strings.ReplaceAll(s, "><", ">\n<")
}
