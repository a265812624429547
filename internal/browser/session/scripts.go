// internal/browser/session/scripts.go
package session

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/climber/internal/selector"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Page functions are invoked with `this` bound to a remote object, either a
// document or an element.

// queryFunction returns a function collecting the element matches of q
// under this, in document order.
func queryFunction(q selector.Query) string {
	if q.Engine == selector.EngineCSS {
		return fmt.Sprintf(`function() {
	return Array.from(this.querySelectorAll(%s));
}`, jsonEncode(q.Expr))
	}
	return fmt.Sprintf(`function() {
	const doc = this.ownerDocument || this;
	const snap = doc.evaluate(%s, this, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	const out = [];
	for (let i = 0; i < snap.snapshotLength; i++) {
		const n = snap.snapshotItem(i);
		if (n.nodeType === Node.ELEMENT_NODE) out.push(n);
	}
	return out;
}`, jsonEncode(q.Expr))
}

const displayedFunction = `function() {
	if (!this.isConnected) return false;
	const style = (this.ownerDocument.defaultView || window).getComputedStyle(this);
	if (style.display === 'none' || style.visibility === 'hidden' || style.opacity === '0') return false;
	const rect = this.getBoundingClientRect();
	return rect.width > 0 && rect.height > 0;
}`

const enabledFunction = `function() {
	if (this.disabled) return false;
	if (this.getAttribute('aria-disabled') === 'true') return false;
	const fs = this.closest('fieldset[disabled]');
	return !fs;
}`

// hitTestFunction reports whether a click at the element's center would
// land on the element or one of its descendants.
const hitTestFunction = `function() {
	const rect = this.getBoundingClientRect();
	const hit = this.ownerDocument.elementFromPoint(rect.left + rect.width / 2, rect.top + rect.height / 2);
	return !!hit && (hit === this || this.contains(hit));
}`

const textFunction = `function() {
	return (this.innerText || this.textContent || '').trim();
}`

const scriptClickFunction = `function() {
	this.click();
	return true;
}`

func attributeFunction(name string) string {
	return fmt.Sprintf(`function() {
	return this.getAttribute(%s);
}`, jsonEncode(name))
}

// jsonEncode renders v as a JavaScript literal.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
