package jsonutils

import (
	"strings"
	"testing"
)

func TestToJSON(t *testing.T) {
	got := ToJSON(map[string]string{"agent": "STA"})
	if !strings.Contains(got, "\"agent\": \"STA\"") {
		t.Errorf("unexpected output: %s", got)
	}
	if ToJSON(make(chan int)) != "" {
		t.Error("unserializable value should yield an empty string")
	}
}

func TestCompact(t *testing.T) {
	got := Compact(map[string]int{"n": 1})
	if got != `{"n":1}` {
		t.Errorf("unexpected output: %s", got)
	}
}
