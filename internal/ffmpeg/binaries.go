// Package ffmpeg locates the ffmpeg and ffprobe executables, downloading a
// pinned static build into the user cache when neither the environment nor
// PATH provides them.
package ffmpeg

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/mgpai22/subtake/internal/logging"
)

const (
	releaseVersion = "6.1"
	releaseBaseURL = "https://github.com/ffbinaries/ffbinaries-prebuilt/releases/download"

	EnvFFmpegPath  = "SUBTAKE_FFMPEG_PATH"
	EnvFFprobePath = "SUBTAKE_FFPROBE_PATH"
)

// ErrUnsupportedPlatform is returned when no prebuilt bundle exists for the
// running OS/arch and the binaries are not installed.
var ErrUnsupportedPlatform = errors.New("unsupported platform for bundled ffmpeg")

type BinaryPaths struct {
	FFmpeg  string
	FFprobe string
}

// Locator resolves binary paths once and caches the answer.
type Locator struct {
	CacheDir string
	Logger   *logging.Logger

	once  sync.Once
	paths BinaryPaths
	err   error
}

var defaultLocator = &Locator{}

// Ensure resolves the binaries with the process-wide locator.
func Ensure(ctx context.Context) (BinaryPaths, error) {
	return defaultLocator.Ensure(ctx)
}

func FFmpegPath(ctx context.Context) (string, error) {
	paths, err := Ensure(ctx)
	if err != nil {
		return "", err
	}
	return paths.FFmpeg, nil
}

func FFprobePath(ctx context.Context) (string, error) {
	paths, err := Ensure(ctx)
	if err != nil {
		return "", err
	}
	return paths.FFprobe, nil
}

func (l *Locator) Ensure(ctx context.Context) (BinaryPaths, error) {
	l.once.Do(func() {
		l.paths, l.err = l.resolve(ctx)
	})
	return l.paths, l.err
}

func (l *Locator) resolve(ctx context.Context) (BinaryPaths, error) {
	log := logging.Or(l.Logger).Named("ffmpeg")

	ffmpegPath := os.Getenv(EnvFFmpegPath)
	ffprobePath := os.Getenv(EnvFFprobePath)
	if ffmpegPath == "" {
		if found, err := exec.LookPath("ffmpeg"); err == nil {
			ffmpegPath = found
		}
	}
	if ffprobePath == "" {
		if found, err := exec.LookPath("ffprobe"); err == nil {
			ffprobePath = found
		}
	}
	if ffmpegPath != "" && ffprobePath != "" {
		log.Debugw("using installed binaries", "ffmpeg", ffmpegPath, "ffprobe", ffprobePath)
		return BinaryPaths{FFmpeg: ffmpegPath, FFprobe: ffprobePath}, nil
	}

	assetName, err := assetForPlatform(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return BinaryPaths{}, err
	}

	installDir := l.installDir()
	paths := BinaryPaths{
		FFmpeg:  filepath.Join(installDir, "ffmpeg"+executableSuffix()),
		FFprobe: filepath.Join(installDir, "ffprobe"+executableSuffix()),
	}
	if binariesExist(paths) {
		return paths, nil
	}

	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return BinaryPaths{}, fmt.Errorf("create ffmpeg cache dir: %w", err)
	}

	log.Infow("downloading ffmpeg", "version", releaseVersion, "asset", assetName, "dir", installDir)
	if err := download(ctx, assetName, installDir); err != nil {
		return BinaryPaths{}, err
	}
	if !binariesExist(paths) {
		return BinaryPaths{}, errors.New("ffmpeg binaries not found after extraction")
	}

	if runtime.GOOS != "windows" {
		for _, p := range []string{paths.FFmpeg, paths.FFprobe} {
			if err := os.Chmod(p, 0o755); err != nil {
				return BinaryPaths{}, fmt.Errorf("chmod %s: %w", filepath.Base(p), err)
			}
		}
	}

	return paths, nil
}

func (l *Locator) installDir() string {
	cacheDir := l.CacheDir
	if cacheDir == "" {
		dir, err := os.UserCacheDir()
		if err != nil || dir == "" {
			dir = os.TempDir()
		}
		cacheDir = filepath.Join(dir, "subtake")
	}
	return filepath.Join(cacheDir, "ffmpeg", releaseVersion, runtime.GOOS, runtime.GOARCH)
}

func assetForPlatform(goos, goarch string) (string, error) {
	switch {
	case goos == "linux" && goarch == "amd64":
		return "ffmpeg-" + releaseVersion + "-linux-64.zip", nil
	case goos == "linux" && goarch == "arm64":
		return "ffmpeg-" + releaseVersion + "-linux-arm-64.zip", nil
	case goos == "darwin" && goarch == "amd64":
		return "ffmpeg-" + releaseVersion + "-macos-64.zip", nil
	case goos == "windows" && goarch == "amd64":
		return "ffmpeg-" + releaseVersion + "-win-64.zip", nil
	default:
		return "", fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, goos, goarch)
	}
}

func download(ctx context.Context, assetName, installDir string) error {
	url := fmt.Sprintf("%s/v%s/%s", releaseBaseURL, releaseVersion, assetName)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download ffmpeg bundle: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download ffmpeg bundle: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download ffmpeg bundle: unexpected status %s", resp.Status)
	}

	tmpFile, err := os.CreateTemp("", "subtake-ffmpeg-*.zip")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	archivePath := tmpFile.Name()
	defer func() { _ = os.Remove(archivePath) }()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write archive: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	if err := extractArchive(archivePath, installDir); err != nil {
		return fmt.Errorf("extract %s: %w", assetName, err)
	}
	return nil
}

// extractArchive copies the ffmpeg and ffprobe entries of a bundle into
// installDir, ignoring everything else in it.
func extractArchive(archivePath, installDir string) error {
	zipReader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open ffmpeg archive: %w", err)
	}
	defer func() { _ = zipReader.Close() }()

	var ffmpegFound, ffprobeFound bool
	for _, file := range zipReader.File {
		var dest string
		switch binaryName(file.Name) {
		case "ffmpeg":
			dest = filepath.Join(installDir, "ffmpeg"+executableSuffix())
			ffmpegFound = true
		case "ffprobe":
			dest = filepath.Join(installDir, "ffprobe"+executableSuffix())
			ffprobeFound = true
		default:
			continue
		}
		if err := extractZipFile(file, dest); err != nil {
			return err
		}
	}

	if !ffmpegFound || !ffprobeFound {
		return errors.New("ffmpeg archive missing required binaries")
	}
	return nil
}

func extractZipFile(file *zip.File, dest string) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("open ffmpeg archive entry: %w", err)
	}
	defer func() { _ = reader.Close() }()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(dest), err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, reader); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(dest), err)
	}
	return nil
}

// "ffmpeg", "ffprobe" or "" for any other archive entry
func binaryName(entry string) string {
	name := strings.TrimSuffix(strings.ToLower(filepath.Base(entry)), ".exe")
	switch name {
	case "ffmpeg", "ffprobe":
		return name
	}
	return ""
}

func binariesExist(p BinaryPaths) bool {
	return fileExists(p.FFmpeg) && fileExists(p.FFprobe)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

func executableSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
