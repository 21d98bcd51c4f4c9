package signals

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"greetd/internal/exitcode"
	"greetd/pkg/logx"
)

func TestMain(m *testing.M) {
	// signal.Notify starts a process-wide receive loop that never exits.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("os/signal.signal_recv"),
		goleak.IgnoreTopFunction("os/signal.loop"),
	)
}

func TestOSDeliversToHandler(t *testing.T) {
	src := OS(Options{ExitFn: exitCalls(t), Log: logx.Nop()}).(*osSource)
	defer src.Close()

	got := make(chan os.Signal, 1)
	src.Install(func(sig os.Signal) { got <- sig })

	src.ch <- syscall.SIGTERM

	select {
	case sig := <-got:
		require.Equal(t, syscall.SIGTERM, sig)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}
}

func TestOSDeliversRepeatedly(t *testing.T) {
	src := OS(Options{MaxCount: 10, ExitFn: exitCalls(t), Log: logx.Nop()}).(*osSource)
	defer src.Close()

	got := make(chan os.Signal, 3)
	src.Install(func(sig os.Signal) { got <- sig })

	src.ch <- os.Interrupt
	src.ch <- os.Interrupt

	for i := 0; i < 2; i++ {
		select {
		case <-got:
		case <-time.After(2 * time.Second):
			t.Fatalf("delivery %d never arrived", i+1)
		}
	}
}

func TestOSEscalatesAfterMaxCount(t *testing.T) {
	exited := make(chan int, 1)
	src := OS(Options{
		MaxCount: 2,
		ExitFn: func(code int) {
			select {
			case exited <- code:
			default:
			}
		},
		Log: logx.Nop(),
	}).(*osSource)
	defer src.Close()

	src.Install(func(os.Signal) {})

	src.ch <- os.Interrupt
	src.ch <- os.Interrupt

	select {
	case code := <-exited:
		require.Equal(t, int(exitcode.Killed), code)
	case <-time.After(2 * time.Second):
		t.Fatal("exit fn was not called after max signal count")
	}
}

func TestOSInstallOnce(t *testing.T) {
	src := OS(Options{ExitFn: exitCalls(t), Log: logx.Nop()}).(*osSource)

	got := make(chan os.Signal, 2)
	src.Install(func(sig os.Signal) { got <- sig })
	// Second install is a no-op; only one forwarding goroutine may run.
	src.Install(func(os.Signal) { t.Error("second handler must never be wired") })

	src.ch <- syscall.SIGHUP
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("first handler lost the signal")
	}

	src.Close()
	src.Close()
}

func TestNopNeverDelivers(t *testing.T) {
	src := Nop()
	src.Install(func(os.Signal) { t.Error("nop source must never deliver") })
	src.Close()
}

func exitCalls(t *testing.T, expectedCodes ...int) func(code int) {
	t.Helper()

	m := mock.Mock{}
	m.Test(t)
	for _, c := range expectedCodes {
		m.On("exit", c).Once()
	}
	t.Cleanup(func() { m.AssertExpectations(t) })

	return func(code int) { m.MethodCalled("exit", code) }
}
