package downloader

import (
	"github.com/ytget/ytfetch/errs"
	"github.com/ytget/ytfetch/types"
)

// Container preference for otherwise comparable formats. MP4 plays
// everywhere; WebM is fine; anything else is a last resort.
const (
	priorityMP4  = 1000
	priorityWebM = 500
)

func containerPriority(ext string) float64 {
	switch ext {
	case "mp4":
		return priorityMP4
	case "webm":
		return priorityWebM
	}
	return 0
}

// SelectBest picks the best directly playable format: only formats
// carrying both a video and an audio track qualify, scored by container
// preference plus total bitrate. Ties keep the first-seen format.
func SelectBest(formats []types.Format) (*types.Format, error) {
	var best *types.Format
	var bestScore float64
	for i := range formats {
		f := &formats[i]
		if !f.HasVideo() || !f.HasAudio() {
			continue
		}
		score := containerPriority(f.Ext) + f.TBR
		if best == nil || score > bestScore {
			best = f
			bestScore = score
		}
	}
	if best == nil {
		return nil, errs.ErrNoSuitableFormat
	}
	return best, nil
}
