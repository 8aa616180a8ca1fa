package benchmark

import (
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// PerformanceMetrics captures detailed performance data
type PerformanceMetrics struct {
	Scenario            Scenario      `json:"scenario" yaml:"scenario"`
	Timestamp           time.Time     `json:"timestamp" yaml:"timestamp"`
	Frames              int           `json:"frames" yaml:"frames"`
	TotalDuration       time.Duration `json:"total_duration" yaml:"total_duration"`
	ImageResizeDuration time.Duration `json:"image_resize_duration" yaml:"image_resize_duration"`
	PreprocessDuration  time.Duration `json:"preprocess_duration" yaml:"preprocess_duration"`
	InferenceDuration   time.Duration `json:"inference_duration" yaml:"inference_duration"`
	PostProcessDuration time.Duration `json:"post_process_duration" yaml:"post_process_duration"`
	LatencyP50          time.Duration `json:"latency_p50" yaml:"latency_p50"`
	LatencyP95          time.Duration `json:"latency_p95" yaml:"latency_p95"`
	FramesPerSecond     float64       `json:"frames_per_second" yaml:"frames_per_second"`
	MemoryStats         MemoryMetrics `json:"memory_stats" yaml:"memory_stats"`
	CPUStats            CPUMetrics    `json:"cpu_stats" yaml:"cpu_stats"`
	DetectionCount      int           `json:"detection_count" yaml:"detection_count"`
	ErrorRate           float64       `json:"error_rate" yaml:"error_rate"`
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes" yaml:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes" yaml:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes" yaml:"sys_bytes"`
	NumGC           uint32 `json:"num_gc" yaml:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes" yaml:"heap_alloc_bytes"`
	HeapSysBytes    uint64 `json:"heap_sys_bytes" yaml:"heap_sys_bytes"`
	// RSSBytes is the resident set size of the process, including memory
	// held by ONNX Runtime and OpenCV outside the Go heap.
	RSSBytes uint64 `json:"rss_bytes" yaml:"rss_bytes"`
}

// CPUMetrics captures CPU usage statistics
type CPUMetrics struct {
	UserTime   time.Duration `json:"user_time" yaml:"user_time"`
	SystemTime time.Duration `json:"system_time" yaml:"system_time"`
	NumCPU     int           `json:"num_cpu" yaml:"num_cpu"`
	GOMAXPROCS int           `json:"gomaxprocs" yaml:"gomaxprocs"`
}

// processSample is the process CPU time and resident memory at one instant.
type processSample struct {
	user, system time.Duration
	rss          uint64
	ok           bool
}

// sampleProcess reads the current process counters. ok is false when the
// platform does not expose them.
func sampleProcess() processSample {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return processSample{}
	}
	times, err := p.Times()
	if err != nil {
		return processSample{}
	}
	s := processSample{
		user:   seconds(times.User),
		system: seconds(times.System),
		ok:     true,
	}
	if mem, err := p.MemoryInfo(); err == nil {
		s.rss = mem.RSS
	}
	return s
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// cpuDelta reports the CPU time spent between two samples.
func cpuDelta(start, end processSample) CPUMetrics {
	m := CPUMetrics{
		NumCPU:     runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
	}
	if start.ok && end.ok {
		m.UserTime = end.user - start.user
		m.SystemTime = end.system - start.system
	}
	return m
}

// stageTimings is the time one frame spent in each pipeline stage.
type stageTimings struct {
	resize, preprocess, inference, postProcess time.Duration
}

func (s stageTimings) total() time.Duration {
	return s.resize + s.preprocess + s.inference + s.postProcess
}

// recorder accumulates per-frame timings for one scenario run.
type recorder struct {
	stages     stageTimings
	latencies  []time.Duration
	detections int
	errors     int
}

func (r *recorder) observe(t stageTimings, detections int) {
	r.stages.resize += t.resize
	r.stages.preprocess += t.preprocess
	r.stages.inference += t.inference
	r.stages.postProcess += t.postProcess
	r.latencies = append(r.latencies, t.total())
	r.detections += detections
}

func (r *recorder) fail() {
	r.errors++
}

// fill copies the accumulated values into m. frames is the number of attempted frames.
func (r *recorder) fill(m *PerformanceMetrics, frames int, elapsed time.Duration) {
	m.Frames = frames
	m.TotalDuration = elapsed
	m.ImageResizeDuration = r.stages.resize
	m.PreprocessDuration = r.stages.preprocess
	m.InferenceDuration = r.stages.inference
	m.PostProcessDuration = r.stages.postProcess
	m.DetectionCount = r.detections
	m.LatencyP50 = percentile(r.latencies, 0.50)
	m.LatencyP95 = percentile(r.latencies, 0.95)
	if elapsed > 0 {
		m.FramesPerSecond = float64(len(r.latencies)) / elapsed.Seconds()
	}
	if frames > 0 {
		m.ErrorRate = float64(r.errors) / float64(frames)
	}
}

// percentile returns the nearest-rank p-th percentile of d. d is sorted in place.
func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	sort.Slice(d, func(i, j int) bool { return d[i] < d[j] })
	rank := int(p*float64(len(d))+0.5) - 1
	rank = max(0, min(rank, len(d)-1))
	return d[rank]
}

// memoryDelta reports the end-of-run heap and the allocation made since start.
func memoryDelta(start, end runtime.MemStats, proc processSample) MemoryMetrics {
	return MemoryMetrics{
		RSSBytes:        proc.rss,
		AllocBytes:      end.Alloc,
		TotalAllocBytes: end.TotalAlloc - start.TotalAlloc,
		SysBytes:        end.Sys,
		NumGC:           end.NumGC - start.NumGC,
		HeapAllocBytes:  end.HeapAlloc,
		HeapSysBytes:    end.HeapSys,
	}
}
