package abi

import "testing"

type fakeSubCaller struct {
	callResult  []byte
	callErr     error
	gotAddress  string
	gotFunction string
	gotCoins    uint64
}

func (s *fakeSubCaller) Call(env *Env, address, function string, params []byte, coins uint64) ([]byte, error) {
	s.gotAddress, s.gotFunction, s.gotCoins = address, function, coins
	return s.callResult, s.callErr
}

func (s *fakeSubCaller) LocalCall(env *Env, function string, params []byte) ([]byte, error) {
	s.gotFunction = function
	return s.callResult, s.callErr
}

func (s *fakeSubCaller) LocalExecution(env *Env, bytecode []byte, function string, params []byte) ([]byte, error) {
	s.gotFunction = function
	return s.callResult, s.callErr
}

func TestAssemblyScriptCallDelegatesToSubCaller(t *testing.T) {
	reg := NewRegistry()
	host := &fakeHost{}
	env, _ := newLegacyTestEnv(t, host)
	sub := &fakeSubCaller{callResult: []byte("ok")}
	env.Sub = sub

	h, ok := reg.Legacy("assembly_script_call")
	if !ok {
		t.Fatal("assembly_script_call not registered")
	}
	addrPtr, _ := env.Legacy.WriteBuffer([]byte("addr1"))
	fnPtr, _ := env.Legacy.WriteBuffer([]byte("run"))
	paramsPtr, _ := env.Legacy.WriteBuffer([]byte("params"))
	out, err := h(env, []uint64{uint64(addrPtr), uint64(fnPtr), uint64(paramsPtr), 7})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if sub.gotAddress != "addr1" || sub.gotFunction != "run" || sub.gotCoins != 7 {
		t.Errorf("SubCaller.Call got address=%q function=%q coins=%d", sub.gotAddress, sub.gotFunction, sub.gotCoins)
	}
	got, err := env.Legacy.ReadBuffer(uint32(out[0]))
	if err != nil || string(got) != "ok" {
		t.Errorf("result = %q, %v; want %q", got, err, "ok")
	}
}

func TestAssemblyScriptCallWithoutSubCallerErrors(t *testing.T) {
	reg := NewRegistry()
	host := &fakeHost{}
	env, _ := newLegacyTestEnv(t, host)
	env.Sub = nil

	h, _ := reg.Legacy("assembly_script_call")
	addrPtr, _ := env.Legacy.WriteBuffer([]byte("addr1"))
	fnPtr, _ := env.Legacy.WriteBuffer([]byte("run"))
	paramsPtr, _ := env.Legacy.WriteBuffer([]byte("params"))
	if _, err := h(env, []uint64{uint64(addrPtr), uint64(fnPtr), uint64(paramsPtr), 0}); err == nil {
		t.Error("expected error when no SubCaller is wired")
	}
}

func TestAssemblyScriptLocalCallDelegates(t *testing.T) {
	reg := NewRegistry()
	host := &fakeHost{}
	env, _ := newLegacyTestEnv(t, host)
	sub := &fakeSubCaller{callResult: []byte("local-ok")}
	env.Sub = sub

	h, _ := reg.Legacy("assembly_script_local_call")
	fnPtr, _ := env.Legacy.WriteBuffer([]byte("handler"))
	paramsPtr, _ := env.Legacy.WriteBuffer([]byte("params"))
	out, err := h(env, []uint64{uint64(fnPtr), uint64(paramsPtr)})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if sub.gotFunction != "handler" {
		t.Errorf("LocalCall got function=%q, want %q", sub.gotFunction, "handler")
	}
	got, _ := env.Legacy.ReadBuffer(uint32(out[0]))
	if string(got) != "local-ok" {
		t.Errorf("result = %q, want %q", got, "local-ok")
	}
}
