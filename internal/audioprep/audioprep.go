// Package audioprep normalizes an uploaded media file into the 16kHz mono
// WAV format every downstream ASR backend expects, shelling out to ffmpeg
// the way the rest of the pipeline's external-tool integrations do.
package audioprep

import (
	"context"
	"fmt"
	"os/exec"
)

// Normalize converts the media file at inputPath into a 16kHz mono
// PCM16 WAV file at outputPath, overwriting it if it exists. It accepts any
// input ffmpeg can demux (mp4, mkv, mp3, wav, ...).
func Normalize(ctx context.Context, inputPath, outputPath string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-i", inputPath,
		"-ac", "1",
		"-ar", "16000",
		"-sample_fmt", "s16",
		"-vn",
		outputPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("audioprep: ffmpeg normalize %q: %w: %s", inputPath, err, out)
	}
	return nil
}
