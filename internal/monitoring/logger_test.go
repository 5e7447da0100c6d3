package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("custom logger was not called")
	}

	// nil installs a no-op logger; logging must not panic.
	SetLogger(nil)
	Logf("dropped message")
}

func TestMute(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})

	restore := Mute()
	Logf("muted message")
	if called {
		t.Error("logger called while muted")
	}

	restore()
	Logf("restored message")
	if !called {
		t.Error("logger not restored after Mute")
	}
}
