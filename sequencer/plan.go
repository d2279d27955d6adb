package sequencer

import (
	"fmt"

	"github.com/opd-ai/etcher/config"
	"github.com/opd-ai/etcher/frame"
	"github.com/opd-ai/etcher/limits"
)

// Plan is the frame and chunk layout of one encode run.
type Plan struct {
	Mode        frame.Mode
	FrameUnits  int // payload units per frame
	TotalUnits  int
	TotalFrames int
	ChunkFrames int // frames per worker chunk
	ChunkUnits  int
	Chunks      int
	FinalFrame  int // zero-based index of the last data frame
	FinalCount  int // units held by the last data frame
}

// NewPlan computes the layout for totalUnits payload units.
//
// Each chunk spans floor(totalFrames/threads)+1 whole frames, so at most
// settings.Threads chunks are produced and only the very last frame of the
// sequence is partially filled.
func NewPlan(settings config.Settings, mode frame.Mode, totalUnits int) (Plan, error) {
	if err := limits.ValidateUnits(totalUnits); err != nil {
		return Plan{}, err
	}

	blocks := frame.Capacity(settings.BlockSize, settings.Width, settings.Height)
	frameUnits := blocks * mode.UnitsPerBlock()
	if frameUnits <= 0 {
		return Plan{}, fmt.Errorf("%w: %dx%d holds no blocks of size %d",
			frame.ErrInvalidDimensions, settings.Width, settings.Height, settings.BlockSize)
	}
	if settings.Threads <= 0 {
		return Plan{}, fmt.Errorf("%w: threads must be > 0", config.ErrInvalidSettings)
	}

	totalFrames := (totalUnits + frameUnits - 1) / frameUnits
	chunkFrames := totalFrames/settings.Threads + 1
	chunkUnits := chunkFrames * frameUnits

	p := Plan{
		Mode:        mode,
		FrameUnits:  frameUnits,
		TotalUnits:  totalUnits,
		TotalFrames: totalFrames,
		ChunkFrames: chunkFrames,
		ChunkUnits:  chunkUnits,
		Chunks:      (totalUnits + chunkUnits - 1) / chunkUnits,
		FinalFrame:  totalFrames - 1,
		FinalCount:  totalUnits - (totalFrames-1)*frameUnits,
	}

	if err := limits.ValidateHeaderField("final_frame_index", p.FinalFrame); err != nil {
		return Plan{}, err
	}
	if err := limits.ValidateHeaderField("final_element_count", p.FinalCount); err != nil {
		return Plan{}, err
	}

	return p, nil
}

// chunkBounds returns the unit range [start, end) of chunk i.
func (p Plan) chunkBounds(i int) (start, end int) {
	start = i * p.ChunkUnits
	end = min(start+p.ChunkUnits, p.TotalUnits)
	return start, end
}
