package pkgcache

import (
	"testing"

	"github.com/zephyraoss/poppy-index/internal/collection"
)

func TestPutGetDelete(t *testing.T) {
	c := New()
	coll := collection.Collection{Identifier: collection.NewJSONIdentifier("https://example.com/a.json"), Name: "A"}
	key := coll.Identifier.DatabaseKey()

	if _, ok := c.Get(key); ok {
		t.Fatalf("expected miss before Put")
	}

	c.Put(key, coll)
	got, ok := c.Get(key)
	if !ok {
		t.Fatalf("expected hit after Put")
	}
	if got.Name != "A" {
		t.Errorf("got %q want A", got.Name)
	}

	c.Delete(key)
	if _, ok := c.Get(key); ok {
		t.Errorf("expected miss after Delete")
	}
}

func TestClearEmptiesCache(t *testing.T) {
	c := New()
	c.Put("a", collection.Collection{Name: "A"})
	c.Put("b", collection.Collection{Name: "B"})

	c.Clear()

	if _, ok := c.Get("a"); ok {
		t.Errorf("expected a to be gone after Clear")
	}
	if _, ok := c.Get("b"); ok {
		t.Errorf("expected b to be gone after Clear")
	}
}

func TestGetManyRequiresEveryKey(t *testing.T) {
	c := New()
	c.Put("a", collection.Collection{Name: "A"})
	c.Put("b", collection.Collection{Name: "B"})

	got, ok := c.GetMany([]string{"a", "b"})
	if !ok {
		t.Fatalf("expected all keys present")
	}
	if len(got) != 2 || got[0].Name != "A" || got[1].Name != "B" {
		t.Errorf("unexpected order/content: %+v", got)
	}

	if _, ok := c.GetMany([]string{"a", "c"}); ok {
		t.Errorf("expected miss when any key absent")
	}
}
