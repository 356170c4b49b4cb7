package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bkummer/homepi/internal/storage"
)

// CommandRunner executes a shell command line and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, cmd string) (string, error)
}

// ShellRunner runs command lines through the local shell.
type ShellRunner struct{}

func (ShellRunner) Run(ctx context.Context, cmd string) (string, error) {
	out, err := exec.CommandContext(ctx, "sh", "-c", cmd).Output()
	if err != nil {
		return "", fmt.Errorf("exec %q: %w", cmd, err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// HostReport is the health snapshot pushed to the phone.
type HostReport struct {
	MessageDatetime string   `json:"message_datetime"`
	Pi              PiReport `json:"pi"`
}

// PiReport carries the scraped host metrics. Load and swap figures stay
// strings, matching how the phone-side widget displays them.
type PiReport struct {
	Hardware       string `json:"hardware"`
	DiskInternal   int    `json:"disk_internal"`
	MemoryInternal int    `json:"memory_internal"`
	MemorySwap     int    `json:"memory_swap"`
	SwappingIn     string `json:"swapping_in"`
	SwappingOut    string `json:"swapping_out"`
	LoadOneMin     string `json:"load_one_min"`
	LoadFiveMin    string `json:"load_five_min"`
	LoadFifteenMin string `json:"load_fifteen_min"`
}

var (
	loadAveragePattern = regexp.MustCompile(`load average: ([^,]+), ([^,]+), ([\d.]+)`)
	revisionSuffix     = regexp.MustCompile(`Rev .*$`)
)

// HostService collects host health metrics by scraping shell command
// output and reports them to the phone.
type HostService struct {
	runner CommandRunner
	phone  Messenger
	store  *storage.Storage
	log    *logrus.Entry
}

// NewHostService creates the host status service. phone and store may
// be nil.
func NewHostService(runner CommandRunner, phone Messenger, store *storage.Storage, log *logrus.Entry) *HostService {
	return &HostService{runner: runner, phone: phone, store: store, log: log}
}

// Run collects one snapshot and dispatches it. Individual probes that
// fail leave their fields zeroed and are logged; only phone delivery
// failures after a complete collection are treated as run errors.
func (s *HostService) Run(ctx context.Context, now time.Time) error {
	report := HostReport{MessageDatetime: now.Format("200601021504")}

	if hw, err := s.hardwareModel(ctx); err != nil {
		s.log.WithError(err).Warn("hardware model probe failed")
	} else {
		report.Pi.Hardware = hw
	}

	if internal, swap, err := s.memoryUsage(ctx); err != nil {
		s.log.WithError(err).Warn("memory probe failed")
	} else {
		report.Pi.MemoryInternal = internal
		report.Pi.MemorySwap = swap
	}

	if disk, err := s.diskUsage(ctx); err != nil {
		s.log.WithError(err).Warn("disk probe failed")
	} else {
		report.Pi.DiskInternal = disk
	}

	if in, out, err := s.swapping(ctx); err != nil {
		s.log.WithError(err).Warn("swapping probe failed")
	} else {
		report.Pi.SwappingIn = in
		report.Pi.SwappingOut = out
	}

	if one, five, fifteen, err := s.averageLoad(ctx); err != nil {
		s.log.WithError(err).Warn("load average probe failed")
	} else {
		report.Pi.LoadOneMin = one
		report.Pi.LoadFiveMin = five
		report.Pi.LoadFifteenMin = fifteen
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal host report: %w", err)
	}

	payload := fmt.Sprintf("pi_%s_status_new|%s", hostNumber(), data)

	s.log.WithFields(logrus.Fields{
		"memory": report.Pi.MemoryInternal,
		"disk":   report.Pi.DiskInternal,
		"load":   report.Pi.LoadOneMin,
	}).Info("host status collected")

	var runErr error
	if s.phone != nil {
		if err := s.phone.Send(ctx, payload); err != nil {
			runErr = fmt.Errorf("send host status to phone: %w", err)
			s.log.WithError(err).Error("failed to send host status to phone")
		}
	}

	if s.store != nil {
		run := &storage.Run{Job: "status", StartedAt: now, Payload: payload}
		if runErr != nil {
			run.Error = runErr.Error()
		}
		if err := s.store.RecordRun(run); err != nil {
			s.log.WithError(err).Error("failed to record run history")
		}
	}

	return runErr
}

// memoryUsage mirrors how NextCloud's server info reports memory:
// used = total - available, as a percentage of total.
func (s *HostService) memoryUsage(ctx context.Context) (internal, swap int, err error) {
	out, err := s.runner.Run(ctx, "cat /proc/meminfo")
	if err != nil {
		return 0, 0, err
	}

	values := map[string]int{}
	for _, line := range strings.Split(out, "\n") {
		name, rest, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		if n, err := strconv.Atoi(fields[0]); err == nil {
			values[name] = n
		}
	}

	total := values["MemTotal"]
	swapTotal := values["SwapTotal"]
	if total == 0 || swapTotal == 0 {
		return 0, 0, fmt.Errorf("unexpected /proc/meminfo output")
	}

	internal = percent(total-values["MemAvailable"], total)
	swap = percent(swapTotal-values["SwapFree"], swapTotal)
	return internal, swap, nil
}

// diskUsage sums used and available megabytes across the internal
// filesystems, excluding the external USB drive.
func (s *HostService) diskUsage(ctx context.Context) (int, error) {
	out, err := s.runner.Run(ctx, "df -BM | grep --invert external_usb | grep --invert Filesystem")
	if err != nil {
		return 0, err
	}

	used, available := 0, 0
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		used += megabytes(fields[2])
		available += megabytes(fields[3])
	}

	if available == 0 {
		return 0, fmt.Errorf("unexpected df output")
	}
	return percent(used, available), nil
}

func (s *HostService) swapping(ctx context.Context) (in, out string, err error) {
	line, err := s.runner.Run(ctx, "vmstat | tail -n 1")
	if err != nil {
		return "", "", err
	}

	fields := strings.Fields(line)
	if len(fields) < 8 {
		return "", "", fmt.Errorf("unexpected vmstat output %q", line)
	}
	return fields[6], fields[7], nil
}

func (s *HostService) averageLoad(ctx context.Context) (one, five, fifteen string, err error) {
	out, err := s.runner.Run(ctx, "uptime")
	if err != nil {
		return "", "", "", err
	}

	m := loadAveragePattern.FindStringSubmatch(out)
	if m == nil {
		return "", "", "", fmt.Errorf("unexpected uptime output %q", out)
	}
	return m[1], m[2], m[3], nil
}

// hardwareModel shortens the device-tree model string to the form the
// phone widget shows, e.g. "3B+". The tr strips the trailing NUL the
// kernel leaves in the file.
func (s *HostService) hardwareModel(ctx context.Context) (string, error) {
	out, err := s.runner.Run(ctx, `cat /proc/device-tree/model | tr -cd '\40-\176'`)
	if err != nil {
		return "", err
	}

	model := strings.NewReplacer(
		"Raspberry Pi ", "",
		" Model ", "",
		" Plus", "+",
	).Replace(out)
	model = revisionSuffix.ReplaceAllString(model, "")
	return strings.TrimSpace(model), nil
}

// hostNumber returns the trailing digit of the hostname, which is how
// the phone tells the household's hosts apart.
func hostNumber() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "0"
	}
	return name[len(name)-1:]
}

func percent(part, whole int) int {
	return int(math.Round(float64(part) / float64(whole) * 100))
}

func megabytes(field string) int {
	n, _ := strconv.Atoi(strings.TrimSuffix(field, "M"))
	return n
}
