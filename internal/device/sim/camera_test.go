// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sim

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/camstream/internal/device"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openCamera(t *testing.T, cfg Config) *Camera {
	t.Helper()
	cam, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cam.Close() })
	return cam
}

func TestOpenAppliesConfig(t *testing.T) {
	cam := openCamera(t, Config{ID: "DEV_TEST", Width: 320, Height: 240, FrameRate: 60, PixelFormat: "RGB8"})

	info, err := cam.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "DEV_TEST", info.DeviceID)
	assert.Equal(t, int64(320), info.Width)
	assert.Equal(t, int64(240), info.Height)
	assert.Equal(t, 60.0, info.FrameRate)
	assert.Equal(t, "RGB8", info.PixelFormat)
	assert.False(t, info.Streaming)
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	_, err := Open(Config{PixelFormat: "YUV420"})
	require.Error(t, err)
	assert.Equal(t, device.ErrInvalidValue, device.CodeOf(err))
}

func TestStreamingDeliversOrderedFrames(t *testing.T) {
	cam := openCamera(t, Config{Width: 64, Height: 64, FrameRate: 200})

	var mu sync.Mutex
	var ids []int64
	err := cam.StartStreaming(context.Background(), 3, func(f device.Frame) {
		mu.Lock()
		ids = append(ids, f.ID())
		mu.Unlock()
		assert.Equal(t, uint64(f.ID()), binary.LittleEndian.Uint64(f.Payload()[:frameHeader]))
		assert.Len(t, f.Payload(), 64*64)
		assert.NoError(t, f.Requeue())
	})
	require.NoError(t, err)
	assert.True(t, cam.IsStreaming())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ids) >= 5
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, cam.StopStreaming(context.Background()))
	assert.False(t, cam.IsStreaming())

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(ids); i++ {
		assert.Equal(t, ids[i-1]+1, ids[i], "frames must arrive in order without gaps")
	}
}

func TestStarvedPoolSkipsFrameIDs(t *testing.T) {
	cam := openCamera(t, Config{Width: 64, Height: 64, FrameRate: 200})

	frames := make(chan device.Frame, 16)
	require.NoError(t, cam.StartStreaming(context.Background(), 1, func(f device.Frame) {
		frames <- f
	}))

	first := <-frames
	// Hold the only buffer long enough for several sensor frames to be lost.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, first.Requeue())

	var second device.Frame
	select {
	case second = <-frames:
	case <-time.After(2 * time.Second):
		t.Fatal("no frame after requeue")
	}
	assert.Greater(t, second.ID()-first.ID(), int64(1))
	require.NoError(t, second.Requeue())

	require.NoError(t, cam.StopStreaming(context.Background()))
}

func TestRequeueTwiceIsInvalidCall(t *testing.T) {
	cam := openCamera(t, Config{Width: 64, Height: 64})
	ctx := context.Background()
	require.NoError(t, cam.EnumSet(ctx, featTriggerMode, "On"))

	frames := make(chan device.Frame, 1)
	require.NoError(t, cam.StartStreaming(ctx, 3, func(f device.Frame) {
		frames <- f
	}))
	require.NoError(t, cam.CommandRun(ctx, featTriggerSW))

	f := <-frames
	require.NoError(t, f.Requeue())
	assert.ErrorIs(t, f.Requeue(), device.ErrInvalidCall)
	require.NoError(t, cam.StopStreaming(ctx))
}

func TestStartStreamingErrors(t *testing.T) {
	cam := openCamera(t, Config{MaxBuffers: 16})
	noop := func(f device.Frame) { _ = f.Requeue() }

	assert.ErrorIs(t, cam.StartStreaming(context.Background(), 32, noop), device.ErrInsufficientBuf)
	assert.ErrorIs(t, cam.StartStreaming(context.Background(), 0, noop), device.ErrBadParameter)
	assert.ErrorIs(t, cam.StartStreaming(context.Background(), 3, nil), device.ErrBadParameter)
	assert.False(t, cam.IsStreaming())

	require.NoError(t, cam.StartStreaming(context.Background(), 3, noop))
	assert.ErrorIs(t, cam.StartStreaming(context.Background(), 3, noop), device.ErrInvalidCall)
	require.NoError(t, cam.StopStreaming(context.Background()))
	assert.ErrorIs(t, cam.StopStreaming(context.Background()), device.ErrInvalidCall)
}

func TestSoftwareTrigger(t *testing.T) {
	cam := openCamera(t, Config{Width: 64, Height: 64})
	ctx := context.Background()
	require.NoError(t, cam.EnumSet(ctx, featTriggerMode, "On"))

	frames := make(chan int64, 4)
	require.NoError(t, cam.StartStreaming(ctx, 3, func(f device.Frame) {
		frames <- f.ID()
		_ = f.Requeue()
	}))

	select {
	case <-frames:
		t.Fatal("frame delivered without trigger")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, cam.CommandRun(ctx, featTriggerSW))
	select {
	case id := <-frames:
		assert.Equal(t, int64(0), id)
	case <-time.After(time.Second):
		t.Fatal("trigger did not produce a frame")
	}
	done, err := cam.CommandIsDone(ctx, featTriggerSW)
	require.NoError(t, err)
	assert.True(t, done)

	require.NoError(t, cam.StopStreaming(ctx))
}

func TestLockedFeaturesWhileStreaming(t *testing.T) {
	cam := openCamera(t, Config{Width: 64, Height: 64, FrameRate: 100})
	ctx := context.Background()

	require.NoError(t, cam.StartStreaming(ctx, 3, func(f device.Frame) { _ = f.Requeue() }))

	assert.ErrorIs(t, cam.IntSet(ctx, featWidth, 128), device.ErrInvalidAccess)
	assert.ErrorIs(t, cam.EnumSet(ctx, featPixelFormat, "Mono16"), device.ErrInvalidAccess)
	mode, err := cam.AccessMode(ctx, featWidth)
	require.NoError(t, err)
	assert.True(t, mode.Readable)
	assert.False(t, mode.Writable)

	// Unlocked features stay writable.
	require.NoError(t, cam.FloatSet(ctx, "Gain", 6))
	require.NoError(t, cam.FloatSet(ctx, featFrameRate, 50))

	require.NoError(t, cam.StopStreaming(ctx))
	require.NoError(t, cam.IntSet(ctx, featWidth, 128))
}

func TestFeatureAccessErrors(t *testing.T) {
	cam := openCamera(t, Config{})
	ctx := context.Background()

	_, err := cam.IntGet(ctx, "NoSuchFeature")
	assert.ErrorIs(t, err, device.ErrNotFound)
	_, err = cam.IntGet(ctx, "Gain")
	assert.ErrorIs(t, err, device.ErrWrongType)
	assert.ErrorIs(t, cam.IntSet(ctx, featWidth, 1), device.ErrInvalidValue)
	assert.ErrorIs(t, cam.IntSet(ctx, featWidth, 641), device.ErrInvalidValue)
	assert.ErrorIs(t, cam.StringSet(ctx, featSerialNumber, "x"), device.ErrInvalidAccess)
	assert.ErrorIs(t, cam.FloatSet(ctx, "DeviceTemperature", 1), device.ErrInvalidAccess)

	info, err := cam.IntInfo(ctx, featWidth)
	require.NoError(t, err)
	assert.Equal(t, device.IntInfo{Min: 8, Max: 4096, Inc: 8}, info)

	enum, err := cam.EnumInfo(ctx, featPixelFormat)
	require.NoError(t, err)
	assert.Contains(t, enum.Possible, "Mono8")

	infos, err := cam.FeatureInfoQuery(ctx, []string{featFrameRate})
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "Float", infos[0].DataType)
	assert.Equal(t, "Hz", infos[0].Unit)

	list, err := cam.FeatureList(ctx)
	require.NoError(t, err)
	assert.Contains(t, list, featTriggerSW)
}

func TestConcurrentFeatureAccess(t *testing.T) {
	cam := openCamera(t, Config{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				assert.NoError(t, cam.FloatSet(ctx, "Gain", float64(i%24)))
				return
			}
			_, err := cam.FloatGet(ctx, "ExposureTime")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
}

func TestSettingsRoundTrip(t *testing.T) {
	cam := openCamera(t, Config{})
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.yaml")

	require.NoError(t, cam.IntSet(ctx, featWidth, 800))
	require.NoError(t, cam.FloatSet(ctx, "Gain", 3.5))
	require.NoError(t, cam.BoolSet(ctx, "ReverseX", true))
	require.NoError(t, cam.StringSet(ctx, featDeviceUserID, "left"))
	require.NoError(t, cam.RawSet(ctx, featLUT, []byte{0, 7, 42}))
	require.NoError(t, cam.SettingsSave(ctx, path))

	other := openCamera(t, Config{})
	require.NoError(t, other.SettingsLoad(ctx, path))

	width, _ := other.IntGet(ctx, featWidth)
	gain, _ := other.FloatGet(ctx, "Gain")
	reverse, _ := other.BoolGet(ctx, "ReverseX")
	user, _ := other.StringGet(ctx, featDeviceUserID)
	assert.Equal(t, int64(800), width)
	assert.Equal(t, 3.5, gain)
	assert.True(t, reverse)
	assert.Equal(t, "left", user)
	lut, _ := other.RawGet(ctx, featLUT)
	assert.Equal(t, []byte{0, 7, 42}, lut)
}

func TestRawAndEnumConversion(t *testing.T) {
	cam := openCamera(t, Config{})
	ctx := context.Background()

	buf := []byte{9, 9}
	require.NoError(t, cam.RawSet(ctx, featLUT, buf))
	buf[0] = 0
	got, err := cam.RawGet(ctx, featLUT)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9}, got, "camera must not alias the caller's buffer")

	n, err := cam.RawMaxLength(ctx, featLUT)
	require.NoError(t, err)
	assert.ErrorIs(t, cam.RawSet(ctx, featLUT, make([]byte, n+1)), device.ErrInvalidValue)

	v, err := cam.EnumAsInt(ctx, featPixelFormat, "BGR8")
	require.NoError(t, err)
	opt, err := cam.EnumAsString(ctx, featPixelFormat, v)
	require.NoError(t, err)
	assert.Equal(t, "BGR8", opt)

	_, err = cam.EnumAsString(ctx, featTriggerMode, 2)
	assert.ErrorIs(t, err, device.ErrInvalidValue)
	_, err = cam.RawGet(ctx, featWidth)
	assert.ErrorIs(t, err, device.ErrWrongType)
}

func TestSettingsLoadErrors(t *testing.T) {
	cam := openCamera(t, Config{Width: 64, Height: 64, FrameRate: 100})
	ctx := context.Background()
	dir := t.TempDir()

	err := cam.SettingsLoad(ctx, filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, device.ErrNotFound)

	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("camera: x\nfeatures:\n  Width: 128\n  Gain: 2\n"), 0o600))

	require.NoError(t, cam.StartStreaming(ctx, 3, func(f device.Frame) { _ = f.Requeue() }))
	err = cam.SettingsLoad(ctx, path)
	require.Error(t, err)
	assert.Equal(t, device.ErrInvalidAccess, device.CodeOf(err))
	gain, _ := cam.FloatGet(ctx, "Gain")
	assert.Equal(t, 2.0, gain, "unlocked features are still applied")
	require.NoError(t, cam.StopStreaming(ctx))

	require.NoError(t, os.WriteFile(path, []byte("bogus: true\n"), 0o600))
	err = cam.SettingsLoad(ctx, path)
	assert.ErrorIs(t, err, device.ErrInvalidValue)
}

func TestClosedCamera(t *testing.T) {
	cam, err := Open(Config{Width: 64, Height: 64, FrameRate: 100})
	require.NoError(t, err)
	require.NoError(t, cam.StartStreaming(context.Background(), 3, func(f device.Frame) { _ = f.Requeue() }))

	require.NoError(t, cam.Close())
	assert.False(t, cam.IsStreaming())
	require.NoError(t, cam.Close())

	_, err = cam.Info(context.Background())
	assert.True(t, errors.Is(err, device.ErrDeviceNotOpen))
	assert.ErrorIs(t, cam.StartStreaming(context.Background(), 3, func(device.Frame) {}), device.ErrDeviceNotOpen)
}
