package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// activityThreshold is the normalized amplitude above which a sample counts
// as speech activity rather than line noise.
const activityThreshold = 0.02

// FFmpeg wraps ffmpeg and ffprobe functionality
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
}

// New creates a new FFmpeg instance
func New(ffmpegPath, ffprobePath string, timeout time.Duration) *FFmpeg {
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		timeout:     timeout,
	}
}

// ValidateBinaries checks if ffmpeg and ffprobe are available
func (f *FFmpeg) ValidateBinaries() error {
	if _, err := exec.LookPath(f.ffmpegPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, f.ffmpegPath)
	}
	if _, err := exec.LookPath(f.ffprobePath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFprobeNotFound, f.ffprobePath)
	}
	return nil
}

// SplitChannels splits a stereo file into two mono WAV files under workDir.
// Call-center convention: the left channel carries the agent, the right the
// customer.
func (f *FFmpeg) SplitChannels(ctx context.Context, inputFile, workDir string) (*ChannelSplit, error) {
	metadata, err := f.GetMetadata(ctx, inputFile)
	if err != nil {
		return nil, err
	}
	if metadata.Channels != 2 {
		return nil, fmt.Errorf("%w: %d channel(s)", ErrNotStereo, metadata.Channels)
	}

	base := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))
	leftPath := filepath.Join(workDir, base+"_left.wav")
	rightPath := filepath.Join(workDir, base+"_right.wav")

	args := []string{
		"-i", inputFile,
		"-filter_complex", "[0:a]channelsplit=channel_layout=stereo[left][right]",
		"-map", "[left]", "-y", leftPath,
		"-map", "[right]", "-y", rightPath,
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, NewProcessingError("channel_split", inputFile, err, stderr.String())
	}

	return &ChannelSplit{LeftPath: leftPath, RightPath: rightPath}, nil
}

// AnalyzeEnergy decodes the file to interleaved float32 PCM and computes the
// cumulative RMS level and activity ratio per channel.
func (f *FFmpeg) AnalyzeEnergy(ctx context.Context, inputFile string, channels int) (*EnergyProfile, error) {
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}

	rawFile, err := os.CreateTemp(filepath.Dir(inputFile), "energy_*.raw")
	if err != nil {
		return nil, NewProcessingError("temp_file_creation", inputFile, err, "")
	}
	rawPath := rawFile.Name()
	rawFile.Close()
	defer os.Remove(rawPath)

	// Decode to raw PCM keeping the original channel layout, downsampled to
	// keep the analysis pass cheap.
	args := []string{
		"-i", inputFile,
		"-f", "f32le",
		"-ar", "8000",
		"-y",
		rawPath,
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, NewProcessingError("pcm_conversion", inputFile, err, stderr.String())
	}

	return analyzePCM(rawPath, channels)
}

// analyzePCM accumulates per-channel energy from interleaved float32 samples.
func analyzePCM(rawPath string, channels int) (*EnergyProfile, error) {
	file, err := os.Open(rawPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	sumSquares := make([]float64, channels)
	activeFrames := make([]int64, channels)
	var frames int64

	frameBytes := 4 * channels
	buffer := make([]byte, frameBytes*4096)
	var leftover []byte

	for {
		n, err := file.Read(buffer)
		if n > 0 {
			chunk := append(leftover, buffer[:n]...)
			whole := (len(chunk) / frameBytes) * frameBytes
			for off := 0; off < whole; off += frameBytes {
				for ch := 0; ch < channels; ch++ {
					sample := bytesToFloat32(chunk[off+4*ch : off+4*ch+4])
					sumSquares[ch] += float64(sample) * float64(sample)
					if math.Abs(float64(sample)) > activityThreshold {
						activeFrames[ch]++
					}
				}
				frames++
			}
			leftover = append(leftover[:0], chunk[whole:]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	profile := &EnergyProfile{
		RMS:          make([]float64, channels),
		ActiveRatio:  make([]float64, channels),
		FrameSamples: frames,
	}
	if frames == 0 {
		return profile, nil
	}
	for ch := 0; ch < channels; ch++ {
		profile.RMS[ch] = math.Sqrt(sumSquares[ch] / float64(frames))
		profile.ActiveRatio[ch] = float64(activeFrames[ch]) / float64(frames)
	}
	return profile, nil
}

// bytesToFloat32 converts 4 bytes to a float32 in little-endian format
func bytesToFloat32(b []byte) float32 {
	var f float32
	buf := bytes.NewReader(b)
	if err := binary.Read(buf, binary.LittleEndian, &f); err != nil {
		return 0
	}
	return f
}
