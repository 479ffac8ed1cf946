package checker

// ProgressEvent 检查进度事件（用于 SSE 展示）
type ProgressEvent struct {
	Percent int    `json:"percent"`
	Stage   string `json:"stage"`
	Folder  string `json:"folder,omitempty"`
}

func reportProgress(progress func(ProgressEvent), percent int, stage, folder string) {
	if progress == nil {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	progress(ProgressEvent{
		Percent: percent,
		Stage:   stage,
		Folder:  folder,
	})
}
