package ffmpeg

// AudioMetadata represents metadata extracted from an audio file
type AudioMetadata struct {
	Duration   float64 `json:"duration"`    // Duration in seconds
	SampleRate int     `json:"sample_rate"` // Sample rate in Hz
	Channels   int     `json:"channels"`    // Number of audio channels
	Format     string  `json:"format"`      // Container format (wav, mp3, ...)
	Codec      string  `json:"codec"`       // Audio codec
	Size       int64   `json:"size"`        // File size in bytes
}

// ChannelSplit holds the per-channel mono files produced from a stereo input.
type ChannelSplit struct {
	LeftPath  string `json:"left_path"`
	RightPath string `json:"right_path"`
}

// EnergyProfile carries cumulative per-channel signal statistics used to
// compare channel activity in a stereo recording.
type EnergyProfile struct {
	RMS          []float64 `json:"rms"`           // root-mean-square level per channel
	ActiveRatio  []float64 `json:"active_ratio"`  // share of frames above the activity threshold
	FrameSamples int64     `json:"frame_samples"` // samples analyzed per channel
}
