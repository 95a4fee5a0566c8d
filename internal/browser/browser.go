// Package browser drives Chrome through go-rod and adapts it to the
// page.Driver boundary.
package browser

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/v0xg/facilityqa/internal/config"
)

// Browser wraps the Rod browser and the single page every session drives.
type Browser struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	dialogs  *dialogTracker
	log      *zap.Logger
	cancel   context.CancelFunc
}

// Launch starts a browser, or connects to the one at props.ControlURL, and
// opens a blank page sized to the configured viewport.
func Launch(ctx context.Context, props config.BrowserProperties, log *zap.Logger) (*Browser, error) {
	if log == nil {
		log = zap.NewNop()
	}

	b := &Browser{log: log}
	controlURL := props.ControlURL
	if controlURL == "" {
		bin := props.Bin
		if bin == "" {
			bin, _ = launcher.LookPath()
		}
		l := launcher.New().
			Bin(bin).
			Headless(props.Headless).
			Set("no-sandbox").
			Set("disable-gpu")
		if props.IgnoreCert {
			l = l.Set("ignore-certificate-errors")
		}

		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch Chrome: %w", err)
		}
		b.launcher = l
		controlURL = u
		log.Debug("launched browser", zap.String("bin", bin), zap.Bool("headless", props.Headless))
	}

	b.browser = rod.New().ControlURL(controlURL)
	if err := b.browser.Connect(); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to connect to Chrome: %w", err)
	}

	page, err := b.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	b.page = page

	if props.Width > 0 && props.Height > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             props.Width,
			Height:            props.Height,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to set viewport: %w", err)
		}
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.dialogs = trackDialogs(page.Context(listenCtx))
	return b, nil
}

// Driver returns the page.Driver bound to the browser's page.
func (b *Browser) Driver() *Driver {
	return &Driver{page: b.page, dialogs: b.dialogs, log: b.log}
}

// Page returns the underlying Rod page
func (b *Browser) Page() *rod.Page {
	return b.page
}

// Screenshot captures the viewport as PNG bytes.
func (b *Browser) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := b.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return data, nil
}

// Frame captures the viewport as a decoded image.
func (b *Browser) Frame(ctx context.Context) (image.Image, error) {
	data, err := b.Screenshot(ctx)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

// Close cleans up browser resources. A browser reached through ControlURL
// only loses the page opened by Launch.
func (b *Browser) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.page != nil {
		_ = b.page.Close()
	}
	if b.launcher == nil {
		return
	}
	if b.browser != nil {
		_ = b.browser.Close()
	}
	b.launcher.Kill()
	b.launcher.Cleanup()
}
