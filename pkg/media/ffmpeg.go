// Etiquette
// Copyright (c) 2026 The Etiquette Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Etiquette.
//
// Etiquette is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Etiquette is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Etiquette.  If not, see <http://www.gnu.org/licenses/>.

package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog/log"
)

// FFmpegToolkit implements Toolkit by forking ffprobe and ffmpeg. Image
// files short-circuit to the in-process decoder.
type FFmpegToolkit struct {
	FFprobePath string
	FFmpegPath  string
}

// NewFFmpegToolkit returns a toolkit using ffprobe/ffmpeg from PATH.
func NewFFmpegToolkit() *FFmpegToolkit {
	return &FFmpegToolkit{FFprobePath: "ffprobe", FFmpegPath: "ffmpeg"}
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe extracts metadata. Image content is decoded in-process; everything
// else goes through ffprobe.
func (t *FFmpegToolkit) Probe(ctx context.Context, path string) (ProbeResult, error) {
	class, err := DetectClass(path)
	if err == nil && class == "image" {
		return ProbeImage(path)
	}

	//nolint:gosec // fixed argument list, path comes from the catalog
	cmd := exec.CommandContext(ctx, t.FFprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	var probed ffprobeOutput
	if err := json.Unmarshal(out, &probed); err != nil {
		return ProbeResult{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	var result ProbeResult
	for _, stream := range probed.Streams {
		switch stream.CodecType {
		case "video":
			result.HasVideo = true
			if stream.Width > result.Width {
				result.Width = stream.Width
				result.Height = stream.Height
			}
		case "audio":
			result.HasAudio = true
		}
	}
	if probed.Format.Duration != "" {
		duration, parseErr := strconv.ParseFloat(probed.Format.Duration, 64)
		if parseErr != nil {
			log.Warn().Err(parseErr).Str("path", path).Msg("unparseable ffprobe duration")
		} else {
			result.Duration = duration
		}
	}
	return result, nil
}

// Thumbnail extracts one frame at atTime, scaled to fit width x height.
func (t *FFmpegToolkit) Thumbnail(
	ctx context.Context,
	input string,
	atTime float64,
	width, height int,
	outPath string,
	quality int,
) error {
	// ffmpeg's qscale runs 2 (best) to 31; map a jpeg quality percentage
	// onto that range
	qscale := 2 + (100-quality)*29/100

	//nolint:gosec // fixed argument list, paths come from the catalog
	cmd := exec.CommandContext(ctx, t.FFmpegPath,
		"-y",
		"-ss", strconv.FormatFloat(atTime, 'f', 3, 64),
		"-i", input,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", width, height),
		"-qscale:v", strconv.Itoa(qscale),
		outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg thumbnail failed for %s: %w (%s)", input, err, out)
	}
	return nil
}
