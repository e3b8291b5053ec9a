//go:build windows

package infra

import (
	"context"
	"runtime"
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
	"github.com/moutend/go-wca/pkg/wca"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	procGetWindowThreadProcessID = user32.NewProc("GetWindowThreadProcessId")
	procGetLastInputInfo         = user32.NewProc("GetLastInputInfo")
	procGetTickCount             = kernel32.NewProc("GetTickCount")
)

// audioSessionStateActive is AudioSessionStateActive from audiosessiontypes.h.
const audioSessionStateActive = 1

func newPlatformSources(logger *zap.Logger) platformSources {
	return platformSources{
		idle:       &lastInputIdle{},
		foreground: &win32Foreground{},
		audio:      &wasapiAudio{logger: logger},
		close:      func() error { return nil },
	}
}

type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

// lastInputIdle uses GetLastInputInfo against GetTickCount. Both are 32-bit
// millisecond counters, so the subtraction wraps correctly after 49.7 days.
type lastInputIdle struct{}

func (l *lastInputIdle) IdleSeconds(ctx context.Context) (float64, error) {
	info := lastInputInfo{cbSize: uint32(unsafe.Sizeof(lastInputInfo{}))}
	ret, _, err := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if ret == 0 {
		return 0, errors.Wrap(err, "GetLastInputInfo")
	}
	now, _, _ := procGetTickCount.Call()
	return float64(uint32(now)-info.dwTime) / 1000.0, nil
}

type win32Foreground struct{}

func (f *win32Foreground) Foreground(ctx context.Context) (domain.ProcessIdentity, string, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return domain.ProcessIdentity{}, "", domain.ErrNoForeground
	}

	title := windowText(hwnd)

	var pid uint32
	procGetWindowThreadProcessID.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if pid == 0 {
		return domain.ProcessIdentity{}, title, errors.New("unable to resolve foreground pid")
	}

	id := resolveIdentity(ctx, int(pid), "", "")
	// Elevated processes refuse PROCESS_QUERY_LIMITED_INFORMATION; keep what gopsutil found.
	if exe, err := imagePath(pid); err == nil {
		id.CanonicalName = domain.CanonicalName("", exe)
	}
	if id.DisplayName == "" {
		id.DisplayName = id.CanonicalName
	}
	return id, title, nil
}

func windowText(hwnd uintptr) string {
	n, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return syscall.UTF16ToString(buf)
}

func imagePath(pid uint32) (string, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", errors.Wrapf(err, "open process %d", pid)
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return "", errors.Wrapf(err, "query image name %d", pid)
	}
	return windows.UTF16ToString(buf[:size]), nil
}

// wasapiAudio enumerates audio sessions on the default render endpoint and reports
// whether any of them is active.
type wasapiAudio struct {
	logger *zap.Logger
}

func (a *wasapiAudio) AudioActive(ctx context.Context) (bool, error) {
	// COM apartments are per thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		// S_FALSE means this thread was already initialised, which is fine.
		if oleErr, ok := err.(*ole.OleError); !ok || oleErr.Code() != 1 {
			return false, errors.Wrap(err, "CoInitializeEx")
		}
	}
	defer ole.CoUninitialize()

	var enumerator *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &enumerator); err != nil {
		return false, errors.Wrap(err, "create device enumerator")
	}
	defer enumerator.Release()

	var device *wca.IMMDevice
	if err := enumerator.GetDefaultAudioEndpoint(wca.ERender, wca.EConsole, &device); err != nil {
		return false, errors.Wrap(err, "default audio endpoint")
	}
	defer device.Release()

	var manager *wca.IAudioSessionManager2
	if err := device.Activate(wca.IID_IAudioSessionManager2, wca.CLSCTX_ALL, nil, &manager); err != nil {
		return false, errors.Wrap(err, "activate session manager")
	}
	defer manager.Release()

	var sessions *wca.IAudioSessionEnumerator
	if err := manager.GetSessionEnumerator(&sessions); err != nil {
		return false, errors.Wrap(err, "session enumerator")
	}
	defer sessions.Release()

	var count int
	if err := sessions.GetCount(&count); err != nil {
		return false, errors.Wrap(err, "session count")
	}

	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		var session *wca.IAudioSessionControl
		if err := sessions.GetSession(i, &session); err != nil {
			a.logger.Debug("skipping audio session", zap.Int("index", i), zap.Error(err))
			continue
		}
		var state uint32
		err := session.GetState(&state)
		session.Release()
		if err == nil && state == audioSessionStateActive {
			return true, nil
		}
	}
	return false, nil
}
