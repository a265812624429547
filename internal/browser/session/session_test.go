// internal/browser/session/session_test.go
package session

import (
	"errors"
	"testing"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/xkilldash9x/climber/internal/browser"
	"github.com/xkilldash9x/climber/internal/selector"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestIndexedObjects(t *testing.T) {
	node := func(id string) *runtime.RemoteObject {
		return &runtime.RemoteObject{Type: runtime.TypeObject, Subtype: runtime.SubtypeNode, ObjectID: runtime.RemoteObjectID(id)}
	}
	props := []*runtime.PropertyDescriptor{
		{Name: "length", Value: &runtime.RemoteObject{Type: runtime.TypeNumber}},
		{Name: "10", Value: node("c")},
		{Name: "2", Value: node("b")},
		{Name: "0", Value: node("a")},
		{Name: "3", Value: &runtime.RemoteObject{Type: runtime.TypeString}},
		{Name: "__proto__", Value: &runtime.RemoteObject{Type: runtime.TypeObject, ObjectID: "proto"}},
	}

	got := indexedObjects(props)
	assert.Equal(t, []runtime.RemoteObjectID{"a", "b", "c"}, got)
	assert.Empty(t, indexedObjects(nil))
}

func TestQuadGeometry(t *testing.T) {
	geo := quadGeometry(dom.Quad{10, 20, 110, 20, 110, 60, 10, 60})
	assert.Equal(t, int64(100), geo.Width)
	assert.Equal(t, int64(40), geo.Height)
	x, y := center(geo)
	assert.Equal(t, 60.0, x)
	assert.Equal(t, 40.0, y)
}

func TestClassifyRemoteError(t *testing.T) {
	assert.NoError(t, classifyRemoteError(nil))
	assert.ErrorIs(t, classifyRemoteError(errors.New("Could not find object with given id")), browser.ErrStaleContext)
	assert.ErrorIs(t, classifyRemoteError(errors.New("Cannot find context with specified id")), browser.ErrStaleContext)

	other := errors.New("websocket closed")
	assert.Equal(t, other, classifyRemoteError(other))
}

func TestQueryFunction(t *testing.T) {
	css := queryFunction(selector.Query{Engine: selector.EngineCSS, Expr: `a[title="x"]`})
	assert.Contains(t, css, `querySelectorAll("a[title=\"x\"]")`)

	xp := queryFunction(selector.Query{Engine: selector.EngineXPath, Expr: "//button"})
	assert.Contains(t, xp, `doc.evaluate("//button", this`)
	assert.Contains(t, xp, "ORDERED_NODE_SNAPSHOT_TYPE")

	assert.Contains(t, attributeFunction("aria-label"), `getAttribute("aria-label")`)
}

func TestJSONEncode(t *testing.T) {
	assert.Equal(t, `"a\"b"`, jsonEncode(`a"b`))
}
