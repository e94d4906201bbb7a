// internal/browser/shim/shim.go
//
// Package shim holds the JavaScript fragments the browser backends inject to probe
// and drive elements. Element fragments are function bodies that operate on a
// variable named `el` and may `return` a value; each backend binds `el` its own way.
package shim

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RefAttribute is the attribute used to tag elements found through script queries so
// later calls can address them again.
const RefAttribute = "data-signup-ref"

// Element fragments.
const (
	// VisibleBody mirrors WebDriver's "is displayed" approximation: the element has a
	// layout box and is not hidden by visibility or display.
	VisibleBody = `
		if (!el.isConnected) { return false; }
		const style = window.getComputedStyle(el);
		if (style.visibility === 'hidden' || style.display === 'none') { return false; }
		if (el.type === 'hidden') { return false; }
		return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);`

	TextBody = `return (el.innerText || el.textContent || '').trim();`

	ClearBody = `
		el.focus();
		if ('value' in el) {
			el.value = '';
			el.dispatchEvent(new Event('input', { bubbles: true }));
		}
		return true;`

	ClickBody = `el.click(); return true;`

	// SubmitBody submits the owning form, preferring requestSubmit so submit handlers run.
	SubmitBody = `
		const form = el.form || el.closest('form');
		if (!form) { throw new Error('element is not inside a form'); }
		if (typeof form.requestSubmit === 'function') { form.requestSubmit(); } else { form.submit(); }
		return true;`
)

// PageTextExpression evaluates to the rendered text of the document.
const PageTextExpression = `(document.body ? (document.body.innerText || document.body.textContent || '') : '')`

// Scroll statements used to trigger lazily loaded signup popups.
var ScrollSequence = []string{
	"window.scrollTo(0, document.body.scrollHeight/3);",
	"window.scrollTo(0, document.body.scrollHeight/2);",
	"window.scrollTo(0, document.body.scrollHeight);",
	"window.scrollTo(0, document.body.scrollHeight/2);",
}

// AttributeBody returns a fragment reading one attribute ("" when absent).
func AttributeBody(name string) string {
	return fmt.Sprintf(`return el.getAttribute(%s) || '';`, quote(name))
}

// SetValueBody returns a fragment that assigns value and fires input/change events.
// Used when real key events cannot be delivered.
func SetValueBody(value string) string {
	return fmt.Sprintf(`
		el.focus();
		el.value = %s;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;`, quote(value))
}

// SelectorFor returns the CSS selector addressing a tagged element.
func SelectorFor(ref string) string {
	return fmt.Sprintf(`[%s="%s"]`, RefAttribute, ref)
}

// OnRef wraps an element fragment into a self-invoking expression that resolves the
// element tagged with ref. It throws when the element is gone.
func OnRef(ref, body string) string {
	var b strings.Builder
	b.WriteString("(() => {\n")
	fmt.Fprintf(&b, "const el = document.querySelector(%s);\n", quote(SelectorFor(ref)))
	b.WriteString("if (!el) { throw new Error('stale element reference'); }\n")
	b.WriteString(body)
	b.WriteString("\n})()")
	return b.String()
}

// FindAndTag builds an expression returning the refs of every element matching the
// query, tagging each match with RefAttribute. scopeRef limits the search to a tagged
// element ("" searches the document). kind is "css", "xpath" or "tag". prefix makes
// refs unique across calls.
func FindAndTag(scopeRef, kind, query, prefix string) (string, error) {
	var lookup string
	switch kind {
	case "css":
		lookup = fmt.Sprintf(`Array.from(scope.querySelectorAll(%s))`, quote(query))
	case "tag":
		lookup = fmt.Sprintf(`Array.from(scope.getElementsByTagName(%s))`, quote(query))
	case "xpath":
		lookup = fmt.Sprintf(`(() => {
			const snap = document.evaluate(%s, scope, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
			const out = [];
			for (let i = 0; i < snap.snapshotLength; i++) {
				const n = snap.snapshotItem(i);
				if (n && n.nodeType === Node.ELEMENT_NODE) { out.push(n); }
			}
			return out;
		})()`, quote(query))
	default:
		return "", fmt.Errorf("unsupported locator kind %q", kind)
	}

	scope := "document"
	if scopeRef != "" {
		scope = fmt.Sprintf(`document.querySelector(%s)`, quote(SelectorFor(scopeRef)))
	}

	return fmt.Sprintf(`(() => {
		const scope = %s;
		if (!scope) { throw new Error('stale element reference'); }
		const found = %s;
		const refs = [];
		found.forEach((node, i) => {
			let ref = node.getAttribute(%s);
			if (!ref) {
				ref = %s + '-' + i;
				node.setAttribute(%s, ref);
			}
			refs.push(ref);
		});
		return refs;
	})()`, scope, lookup, quote(RefAttribute), quote(prefix), quote(RefAttribute)), nil
}

// quote renders s as a JavaScript string literal.
func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
