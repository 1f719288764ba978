// Package monitoring turns a running simulation into a web server that
// reports its progress and lets a user look into the sensors.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime"
	"runtime/pprof"
	"sort"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-metrics"
	"github.com/sarchlab/sensorsim/histogram"
	"github.com/sarchlab/sensorsim/sensor"
	"github.com/sarchlab/sensorsim/sim/id"
	"github.com/sarchlab/sensorsim/termination"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor can turn a simulation into a server and allows external monitoring
// of the simulation.
type Monitor struct {
	portNumber int
	logger     *slog.Logger

	network   *sensor.Network
	detector  *termination.Detector
	histogram *histogram.Histogram

	metricsSink *metrics.InmemSink

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		logger:      slog.Default(),
		metricsSink: metrics.NewInmemSink(10*time.Second, 5*time.Minute),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warn("monitoring port not allowed, using a random port",
			"port", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger that reports the server address.
func (m *Monitor) WithLogger(logger *slog.Logger) *Monitor {
	m.logger = logger
	return m
}

// MetricSink returns the in-memory sink served at /api/metrics.
func (m *Monitor) MetricSink() *metrics.InmemSink {
	return m.metricsSink
}

// RegisterNetwork registers the network whose sensors are monitored.
func (m *Monitor) RegisterNetwork(n *sensor.Network) {
	m.network = n
}

// RegisterDetector registers the termination detector of the simulation.
func (m *Monitor) RegisterDetector(d *termination.Detector) {
	m.detector = d
}

// RegisterHistogram registers the histogram the deliveries go to.
func (m *Monitor) RegisterHistogram(h *histogram.Histogram) {
	m.histogram = h
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        id.NewParallelIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the router that serves the monitoring API.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", m.index)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/histogram", m.listHistogram)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.HandleFunc("/api/metrics", m.listMetrics)
	r.HandleFunc("/api/hangdetector/mailboxes", m.hangDetectorMailboxes)
	r.HandleFunc("/api/sensor/{name}", m.listSensorDetails)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	return r
}

// StartServer starts the monitor as a web server and returns its address.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("monitoring: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	m.logger.Info("monitoring simulation", "url", url)

	m.server = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitoring server failed", "error", err)
		}
	}()

	return url, nil
}

// StopServer shuts the web server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) index(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, `sensorsim monitor

/api/progress
/api/histogram
/api/resource
/api/profile
/api/metrics
/api/hangdetector/mailboxes?sort=percent&limit=10
/api/sensor/{name}
/debug/pprof/
`)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressSnapshot, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type histogramRsp struct {
	Delivered int             `json:"delivered"`
	Target    int             `json:"target"`
	Mean      float64         `json:"mean"`
	Max       int             `json:"max"`
	Rows      []histogram.Row `json:"rows"`
}

func (m *Monitor) listHistogram(w http.ResponseWriter, _ *http.Request) {
	if m.histogram == nil {
		http.Error(w, "no histogram registered", http.StatusNotFound)
		return
	}

	rsp := histogramRsp{
		Mean: m.histogram.Mean(),
		Max:  m.histogram.Max(),
		Rows: m.histogram.Rows(),
	}

	if m.detector != nil {
		rsp.Delivered = m.detector.Delivered()
		rsp.Target = m.detector.Target()
	}

	writeJSON(w, rsp)
}

type resourceRsp struct {
	CPUPercent   float64 `json:"cpu_percent"`
	MemorySize   uint64  `json:"memory_size"`
	NumGoroutine int     `json:"num_goroutine"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent:   cpuPercent,
		MemorySize:   memorySize.RSS,
		NumGoroutine: runtime.NumGoroutine(),
	}

	writeJSON(w, rsp)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func (m *Monitor) listMetrics(w http.ResponseWriter, r *http.Request) {
	summary, err := m.metricsSink.DisplayMetrics(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, summary)
}

type mailboxRsp struct {
	Mailbox string `json:"mailbox"`
	Level   int    `json:"level"`
	Cap     int    `json:"cap"`
}

func (m *Monitor) hangDetectorMailboxes(w http.ResponseWriter, r *http.Request) {
	sortMethod, limit, offset, err := mailboxesParseParams(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error: %s", err), http.StatusBadRequest)
		return
	}

	rsp := []mailboxRsp{}
	if m.network != nil {
		for _, mb := range m.sortAndSelectMailboxes(sortMethod, limit, offset) {
			rsp = append(rsp, mailboxRsp{
				Mailbox: mb.Name,
				Level:   mb.Level,
				Cap:     mb.Cap,
			})
		}
	}

	writeJSON(w, rsp)
}

func mailboxesParseParams(
	r *http.Request,
) (sort string, limit, offset int, err error) {
	sortMethod := r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "percent"
	}

	if sortMethod != "level" && sortMethod != "percent" {
		return "", 0, 0, fmt.Errorf(
			"invalid sort method: %s, allowed values are `level` and `percent`",
			sortMethod)
	}

	limitNumber, err := intParam(r, "limit")
	if err != nil {
		return sortMethod, 0, 0, err
	}

	offsetNumber, err := intParam(r, "offset")
	if err != nil {
		return sortMethod, limitNumber, 0, err
	}

	return sortMethod, limitNumber, offsetNumber, nil
}

func intParam(r *http.Request, name string) (int, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(str)
	if err != nil {
		return 0, err
	}

	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}

	return n, nil
}

type mailboxLevel struct {
	Name  string
	Level int
	Cap   int
}

func (l mailboxLevel) percent() float64 {
	return float64(l.Level) / float64(l.Cap)
}

// sortAndSelectMailboxes takes a snapshot of the mailbox levels, sorts it,
// and returns the requested page. A zero limit returns everything after
// offset.
func (m *Monitor) sortAndSelectMailboxes(
	sortMethod string,
	limit, offset int,
) []mailboxLevel {
	levels := make([]mailboxLevel, 0, m.network.NumSensors())
	for _, s := range m.network.Sensors() {
		mb := s.Mailbox()
		levels = append(levels, mailboxLevel{
			Name:  mb.Name(),
			Level: mb.Size(),
			Cap:   mb.Capacity(),
		})
	}

	switch sortMethod {
	case "level":
		sort.SliceStable(levels, func(i, j int) bool {
			if levels[i].Level != levels[j].Level {
				return levels[i].Level > levels[j].Level
			}

			return levels[i].percent() > levels[j].percent()
		})
	case "percent":
		sort.SliceStable(levels, func(i, j int) bool {
			if levels[i].percent() != levels[j].percent() {
				return levels[i].percent() > levels[j].percent()
			}

			return levels[i].Level > levels[j].Level
		})
	default:
		panic("Invalid sort method " + sortMethod)
	}

	if offset > len(levels) {
		offset = len(levels)
	}

	end := len(levels)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return levels[offset:end]
}

func (m *Monitor) listSensorDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if m.network == nil {
		http.Error(w, "Sensor not found", http.StatusNotFound)
		return
	}

	s, err := m.network.SensorByName(name)
	if err != nil {
		http.Error(w, "Sensor not found", http.StatusNotFound)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(s)
	serializer.SetMaxDepth(1)
	err = serializer.Serialize(w)

	dieOnErr(err)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
