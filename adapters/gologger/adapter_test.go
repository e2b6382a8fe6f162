package gologger

import (
	"context"
	"testing"

	glog "github.com/goliatone/go-logger/glog"
)

func TestResolvePrecedence(t *testing.T) {
	direct := &recordingLogger{id: "direct"}
	scoped := &recordingLogger{id: "scoped"}
	provider := &recordingProvider{logger: scoped}

	t.Run("provider wins over direct logger", func(t *testing.T) {
		_, resolved := Resolve(DefaultScope, provider, direct)
		if got := resolved.(*recordingLogger).id; got != "scoped" {
			t.Fatalf("expected provider logger, got %q", got)
		}
	})

	t.Run("direct logger when provider is nil", func(t *testing.T) {
		resolvedProvider, resolved := Resolve(DefaultScope, nil, direct)
		if got := resolved.(*recordingLogger).id; got != "direct" {
			t.Fatalf("expected direct logger, got %q", got)
		}
		if resolvedProvider == nil {
			t.Fatal("expected provider wrapper derived from logger")
		}
	})

	t.Run("nop fallback", func(t *testing.T) {
		_, resolved := Resolve(DefaultScope, nil, nil)
		if resolved == nil {
			t.Fatal("expected nop logger")
		}
	})

	t.Run("blank scope defaults", func(t *testing.T) {
		_, resolved := Resolve("  ", provider, nil)
		if got := resolved.(*recordingLogger).id; got != "scoped" {
			t.Fatalf("expected provider logger under default scope, got %q", got)
		}
	})
}

func TestResolveForJobBridgesBothContracts(t *testing.T) {
	scoped := &recordingLogger{id: "scoped"}
	provider := &recordingProvider{logger: scoped}

	_, _, jobProvider, jobLogger := ResolveForJob(DefaultScope, provider, nil)
	if jobProvider == nil {
		t.Fatal("expected go-job provider bridge")
	}
	if jobLogger == nil {
		t.Fatal("expected go-job logger bridge")
	}

	jobProvider.GetLogger("completion-ack").Info("flow complete", "profile_id", "profile-1")

	if scoped.lastInfo.msg != "flow complete" {
		t.Fatalf("expected bridged message, got %q", scoped.lastInfo.msg)
	}
	if scoped.lastInfo.args[0] != "profile_id" || scoped.lastInfo.args[1] != "profile-1" {
		t.Fatalf("expected bridged args, got %#v", scoped.lastInfo.args)
	}
}

var (
	_ glog.Logger         = (*recordingLogger)(nil)
	_ glog.LoggerProvider = (*recordingProvider)(nil)
)

type recordingProvider struct {
	logger *recordingLogger
}

func (p *recordingProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type infoCall struct {
	msg  string
	args []any
}

type recordingLogger struct {
	id       string
	lastInfo infoCall
}

func (l *recordingLogger) Trace(string, ...any) {}
func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Warn(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}
func (l *recordingLogger) Fatal(string, ...any) {}

func (l *recordingLogger) Info(msg string, args ...any) {
	l.lastInfo = infoCall{
		msg:  msg,
		args: append([]any(nil), args...),
	}
}

func (l *recordingLogger) WithContext(context.Context) glog.Logger {
	return l
}
