package core

import "testing"

func TestEventRegisterAndFire(t *testing.T) {
	EventInitialize()
	defer EventShutdown()

	listener := &struct{ name string }{"a"}
	var got []uint32
	ok := EventRegister(EventCodeResized, listener, func(code SystemEventCode, sender, l interface{}, data EventContext) bool {
		got = append(got, data.Data.U32[0], data.Data.U32[1])
		return false
	})
	if !ok {
		t.Fatal("EventRegister() = false, want true")
	}
	if EventRegister(EventCodeResized, listener, nil) {
		t.Error("EventRegister() duplicate = true, want false")
	}

	ctx := EventContext{}
	ctx.Data.U32[0] = 640
	ctx.Data.U32[1] = 480
	if handled := EventFire(EventCodeResized, nil, ctx); handled {
		t.Error("EventFire() = true, want false")
	}
	if len(got) != 2 || got[0] != 640 || got[1] != 480 {
		t.Errorf("listener received %v, want [640 480]", got)
	}

	if !EventUnregister(EventCodeResized, listener) {
		t.Error("EventUnregister() = false, want true")
	}
	EventFire(EventCodeResized, nil, ctx)
	if len(got) != 2 {
		t.Errorf("listener called after unregister, received %v", got)
	}
}

func TestEventFireStopsWhenHandled(t *testing.T) {
	EventInitialize()
	defer EventShutdown()

	first, second := new(int), new(int)
	calls := 0
	EventRegister(EventCodeApplicationQuit, first, func(SystemEventCode, interface{}, interface{}, EventContext) bool {
		calls++
		return true
	})
	EventRegister(EventCodeApplicationQuit, second, func(SystemEventCode, interface{}, interface{}, EventContext) bool {
		calls++
		return false
	})
	if !EventFire(EventCodeApplicationQuit, nil, EventContext{}) {
		t.Error("EventFire() = false, want true")
	}
	if calls != 1 {
		t.Errorf("listeners called %d times, want 1", calls)
	}
}

func TestEventRegisterInvalidCode(t *testing.T) {
	EventInitialize()
	defer EventShutdown()

	if EventRegister(MaxMessageCodes, nil, nil) {
		t.Error("EventRegister(MaxMessageCodes) = true, want false")
	}
	if EventUnregister(EventCodeShaderCompiled, new(int)) {
		t.Error("EventUnregister() unknown listener = true, want false")
	}
}
