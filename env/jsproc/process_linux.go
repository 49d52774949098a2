package jsproc

import (
	"bufio"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/criyle/go-sandbox/pkg/forkexec"
	"github.com/criyle/go-sandbox/pkg/rlimit"
)

// stderrKeep is how much of the host stderr is kept for diagnosis.
// Fatal runtime errors print their reason first.
const stderrKeep = 4 << 10

// process is a running host with its pipes
type process struct {
	pid int

	stdin  *os.File
	stdout *os.File
	reader *bufio.Reader

	done    chan struct{}
	wstatus syscall.WaitStatus
	rusage  syscall.Rusage
	waitErr error

	stderrDone chan struct{}
	stderrMu   sync.Mutex
	stderr     []byte
}

func startProcess(path string, env []string, rLimits rlimit.RLimits) (*process, error) {
	inR, inW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		closeFiles(inR, inW)
		return nil, err
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		closeFiles(inR, inW, outR, outW)
		return nil, err
	}

	ch := &forkexec.Runner{
		Args:       []string{path, initArg},
		Env:        env,
		RLimits:    rLimits.PrepareRLimit(),
		Files:      []uintptr{inR.Fd(), outW.Fd(), errW.Fd()},
		NoNewPrivs: true,
	}
	pid, err := ch.Start()
	// the host holds its own copies now
	closeFiles(inR, outW, errW)
	if err != nil {
		closeFiles(inW, outR, errR)
		return nil, err
	}

	p := &process{
		pid:        pid,
		stdin:      inW,
		stdout:     outR,
		reader:     bufio.NewReader(outR),
		done:       make(chan struct{}),
		stderrDone: make(chan struct{}),
	}
	go p.collectStderr(errR)
	go p.wait()
	return p, nil
}

func (p *process) wait() {
	defer close(p.done)
	for {
		_, err := syscall.Wait4(p.pid, &p.wstatus, 0, &p.rusage)
		if err == syscall.EINTR {
			continue
		}
		p.waitErr = err
		return
	}
}

// collectStderr keeps the head of stderr and discards the rest, so the host
// never blocks on a full pipe
func (p *process) collectStderr(r *os.File) {
	defer close(p.stderrDone)
	defer r.Close()

	buf := make([]byte, 1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			p.stderrMu.Lock()
			if room := stderrKeep - len(p.stderr); room > 0 {
				p.stderr = append(p.stderr, buf[:min(n, room)]...)
			}
			p.stderrMu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// exited reports whether the host has been reaped
func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// kill stops the host unless it was already reaped
func (p *process) kill() {
	if !p.exited() {
		syscall.Kill(p.pid, syscall.SIGKILL)
	}
}

// diagnosis returns what the host printed before it died
func (p *process) diagnosis() string {
	<-p.stderrDone
	p.stderrMu.Lock()
	defer p.stderrMu.Unlock()
	return strings.TrimSpace(string(p.stderr))
}

func (p *process) close() {
	closeFiles(p.stdin, p.stdout)
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		f.Close()
	}
}
