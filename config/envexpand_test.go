package config

import (
	"testing"
)

func TestExpandEnv_SetVar(t *testing.T) {
	t.Setenv("TEST_VAR", "hello")

	got := ExpandEnv("address: ${TEST_VAR}")
	want := "address: hello"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnv_UnsetVar(t *testing.T) {
	got := ExpandEnv("address: ${UNSET_VAR_12345}")
	want := "address: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnv_DefaultUsedWhenUnset(t *testing.T) {
	got := ExpandEnv("address: ${UNSET_VAR_12345:-127.0.0.1}")
	want := "address: 127.0.0.1"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnv_DefaultIgnoredWhenSet(t *testing.T) {
	t.Setenv("TEST_VAR", "render-host")

	got := ExpandEnv("address: ${TEST_VAR:-127.0.0.1}")
	want := "address: render-host"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnv_DefaultUsedWhenEmpty(t *testing.T) {
	t.Setenv("TEST_VAR", "")

	got := ExpandEnv("address: ${TEST_VAR:-127.0.0.1}")
	want := "address: 127.0.0.1"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnv_MultipleVars(t *testing.T) {
	t.Setenv("RENDER_HOST", "10.0.0.5")
	t.Setenv("RENDER_PORT", "4768")

	got := ExpandEnv("${RENDER_HOST}:${RENDER_PORT}")
	want := "10.0.0.5:4768"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnv_NoVars(t *testing.T) {
	input := "address: 127.0.0.1\nport: 4768"
	if got := ExpandEnv(input); got != input {
		t.Errorf("got %q, want unchanged input", got)
	}
}

func TestExpandEnv_DollarWithoutBraces(t *testing.T) {
	input := "password: p$ss"
	if got := ExpandEnv(input); got != input {
		t.Errorf("got %q, want unchanged input", got)
	}
}
