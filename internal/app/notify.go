package app

import (
	"github.com/coreos/go-systemd/v22/daemon"

	logx "greetd/pkg/logx"
)

// sdNotify is swappable in tests. The real implementation is a no-op
// unless NOTIFY_SOCKET is set by a systemd unit with Type=notify.
var sdNotify = func(state string) (bool, error) {
	return daemon.SdNotify(false, state)
}

func (a *App) notifyReady() {
	if !a.sdNotifyEnabled {
		return
	}
	sent, err := sdNotify(daemon.SdNotifyReady)
	if err != nil {
		a.log.Warn("sd_notify failed", logx.Err(err))
		return
	}
	if sent {
		a.log.Debug("sd_notify: READY")
	}
}

func (a *App) notifyStopping() {
	if !a.sdNotifyEnabled {
		return
	}
	sent, err := sdNotify(daemon.SdNotifyStopping)
	if err != nil {
		a.log.Warn("sd_notify failed", logx.Err(err))
		return
	}
	if sent {
		a.log.Debug("sd_notify: STOPPING")
	}
}
