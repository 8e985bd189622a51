package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/docker/docker/api/types"
	containertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakenelson/pydock/internal/model"
)

// notFoundError satisfies the docker client's not-found check.
type notFoundError struct{}

func (notFoundError) Error() string { return "no such image" }
func (notFoundError) NotFound()     {}

// fakeClient counts collaborator calls and records the configuration the
// runner hands to the daemon.
type fakeClient struct {
	images   map[string]bool
	networks []network.Summary

	imageErr  error
	listErr   error
	createErr error
	startErr  error
	logsErr   error
	removeErr error

	logs io.ReadCloser

	inspectCalls int
	createCalls  int
	startCalls   int
	logsCalls    int
	removeCalls  int

	lastConfig     *containertypes.Config
	lastHostConfig *containertypes.HostConfig
}

func (f *fakeClient) ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error) {
	f.inspectCalls++
	if f.imageErr != nil {
		return types.ImageInspect{}, nil, f.imageErr
	}
	if !f.images[imageID] {
		return types.ImageInspect{}, nil, notFoundError{}
	}
	return types.ImageInspect{ID: "sha256:deadbeef"}, nil, nil
}

func (f *fakeClient) NetworkList(ctx context.Context, options network.ListOptions) ([]network.Summary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.networks, nil
}

func (f *fakeClient) ContainerCreate(ctx context.Context, config *containertypes.Config, hostConfig *containertypes.HostConfig,
	networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (containertypes.CreateResponse, error) {
	f.createCalls++
	if f.createErr != nil {
		return containertypes.CreateResponse{}, f.createErr
	}
	f.lastConfig = config
	f.lastHostConfig = hostConfig
	return containertypes.CreateResponse{ID: "0123456789abcdef"}, nil
}

func (f *fakeClient) ContainerStart(ctx context.Context, containerID string, options containertypes.StartOptions) error {
	f.startCalls++
	return f.startErr
}

func (f *fakeClient) ContainerLogs(ctx context.Context, containerID string, options containertypes.LogsOptions) (io.ReadCloser, error) {
	f.logsCalls++
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	return f.logs, nil
}

func (f *fakeClient) ContainerAttach(ctx context.Context, containerID string, options containertypes.AttachOptions) (types.HijackedResponse, error) {
	return types.HijackedResponse{}, errors.New("not implemented")
}

func (f *fakeClient) ContainerResize(ctx context.Context, containerID string, options containertypes.ResizeOptions) error {
	return nil
}

func (f *fakeClient) ContainerRemove(ctx context.Context, containerID string, options containertypes.RemoveOptions) error {
	f.removeCalls++
	return f.removeErr
}

// muxLogs builds a daemon-style multiplexed log stream.
func muxLogs(t *testing.T, stdout, stderr string) io.ReadCloser {
	t.Helper()
	var buf bytes.Buffer
	if stdout != "" {
		_, err := stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(stdout))
		require.NoError(t, err)
	}
	if stderr != "" {
		_, err := stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte(stderr))
		require.NoError(t, err)
	}
	return io.NopCloser(&buf)
}

// errReader yields its data, then a read error.
type errReader struct {
	data []byte
	err  error
	pos  int
}

func (r *errReader) Read(p []byte) (int, error) {
	if r.pos < len(r.data) {
		n := copy(p, r.data[r.pos:])
		r.pos += n
		return n, nil
	}
	return 0, r.err
}

func (r *errReader) Close() error { return nil }

func newFakeClient() *fakeClient {
	return &fakeClient{
		images:   map[string]bool{"py3-dev": true},
		networks: []network.Summary{{Name: "devnet", ID: "f00dcafe1234"}},
	}
}

func runOpts(remove bool) RunOptions {
	return RunOptions{
		Image:   "py3-dev",
		Command: "python3 setup.py test",
		Mounts: []model.Mount{
			{Source: "/home/dev/project", Target: "/src"},
			{Source: "/home/dev/lib", Target: "/pypath/lib", Mode: model.ReadOnly},
		},
		Env:     []model.EnvVar{{Name: "PYTHONPATH", Value: "/pypath"}},
		WorkDir: "/src",
		Remove:  remove,
	}
}

func TestRunMissingImageShortCircuits(t *testing.T) {
	cli := newFakeClient()
	cli.images = nil
	r := NewRunner(cli)

	_, err := r.Run(context.Background(), runOpts(true))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Zero(t, cli.createCalls, "no container must be created on an invalid image")
	assert.Zero(t, cli.startCalls)
}

func TestRunMissingNetworkShortCircuits(t *testing.T) {
	cli := newFakeClient()
	r := NewRunner(cli)

	opts := runOpts(true)
	opts.Network = "nosuchnet"
	_, err := r.Run(context.Background(), opts)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidNetwork)
	assert.Zero(t, cli.createCalls)
}

func TestRunDaemonUnreachableShortCircuits(t *testing.T) {
	cli := newFakeClient()
	cli.imageErr = errors.New("cannot connect to the Docker daemon")
	r := NewRunner(cli)

	_, err := r.Run(context.Background(), runOpts(true))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Zero(t, cli.createCalls)
}

func TestRunStreamsCombinedOutput(t *testing.T) {
	cli := newFakeClient()
	cli.logs = muxLogs(t, "hello from stdout\n", "and stderr\n")
	r := NewRunner(cli)

	stream, err := r.Run(context.Background(), runOpts(true))
	require.NoError(t, err)

	out, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.NoError(t, stream.Close())

	assert.Equal(t, "hello from stdout\nand stderr\n", string(out))
	assert.Equal(t, 1, cli.createCalls)
	assert.Equal(t, 1, cli.startCalls)
	assert.Equal(t, 1, cli.removeCalls)
}

func TestRunPassesComposedConfiguration(t *testing.T) {
	cli := newFakeClient()
	cli.logs = muxLogs(t, "", "")
	r := NewRunner(cli)

	opts := runOpts(true)
	opts.Network = "devnet"
	opts.Ports = []model.Port{{Container: 8080, Host: 9090}}
	opts.MemoryLimit = 1 << 30
	stream, err := r.Run(context.Background(), opts)
	require.NoError(t, err)
	defer stream.Close()

	require.NotNil(t, cli.lastConfig)
	assert.Equal(t, []string{"python3", "setup.py", "test"}, []string(cli.lastConfig.Cmd))
	assert.Equal(t, []string{"PYTHONPATH=/pypath"}, cli.lastConfig.Env)
	assert.Equal(t, "/src", cli.lastConfig.WorkingDir)
	assert.False(t, cli.lastConfig.Tty)
	assert.False(t, cli.lastConfig.OpenStdin)

	require.NotNil(t, cli.lastHostConfig)
	assert.Equal(t, []string{
		"/home/dev/project:/src:rw",
		"/home/dev/lib:/pypath/lib:ro",
	}, cli.lastHostConfig.Binds)
	assert.Equal(t, "devnet", string(cli.lastHostConfig.NetworkMode))
	assert.Equal(t, int64(1<<30), cli.lastHostConfig.Resources.Memory)

	// Binding map keyed by container port, host port as the bound value.
	binds := cli.lastHostConfig.PortBindings["8080/tcp"]
	require.Len(t, binds, 1)
	assert.Equal(t, "9090", binds[0].HostPort)
}

func TestRunMidStreamErrorStillCleansUp(t *testing.T) {
	cli := newFakeClient()
	cli.logs = &errReader{
		data: mustMux(t, "partial output"),
		err:  errors.New("daemon connection dropped"),
	}
	r := NewRunner(cli)

	stream, err := r.Run(context.Background(), runOpts(true))
	require.NoError(t, err)

	out, err := io.ReadAll(stream)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error while running command")
	assert.Equal(t, "partial output", string(out))
	assert.Equal(t, 1, cli.removeCalls, "cleanup must run before the error propagates")

	require.NoError(t, stream.Close())
	assert.Equal(t, 1, cli.removeCalls, "cleanup must run exactly once")
}

func TestRunCleanupExactlyOnce(t *testing.T) {
	cli := newFakeClient()
	cli.logs = muxLogs(t, "done\n", "")
	r := NewRunner(cli)

	stream, err := r.Run(context.Background(), runOpts(true))
	require.NoError(t, err)

	_, err = io.ReadAll(stream)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())

	assert.Equal(t, 1, cli.removeCalls)
}

func TestRunKeepContainer(t *testing.T) {
	cli := newFakeClient()
	cli.logs = muxLogs(t, "done\n", "")
	r := NewRunner(cli)

	stream, err := r.Run(context.Background(), runOpts(false))
	require.NoError(t, err)

	_, err = io.ReadAll(stream)
	require.NoError(t, err)
	require.NoError(t, stream.Close())

	assert.Zero(t, cli.removeCalls)
}

func TestRunRemoveFailureIsSwallowed(t *testing.T) {
	cli := newFakeClient()
	cli.logs = muxLogs(t, "done\n", "")
	cli.removeErr = errors.New("removal in progress")
	r := NewRunner(cli)

	stream, err := r.Run(context.Background(), runOpts(true))
	require.NoError(t, err)

	out, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "done\n", string(out))
	assert.NoError(t, stream.Close())
	assert.Equal(t, 1, cli.removeCalls)
}

func TestRunCreateFailureHasNothingToClean(t *testing.T) {
	cli := newFakeClient()
	cli.createErr = errors.New("daemon rejected create")
	r := NewRunner(cli)

	_, err := r.Run(context.Background(), runOpts(true))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to run container")
	assert.Zero(t, cli.removeCalls)
}

func TestRunStartFailureCleansUp(t *testing.T) {
	cli := newFakeClient()
	cli.startErr = errors.New("daemon rejected start")
	r := NewRunner(cli)

	_, err := r.Run(context.Background(), runOpts(true))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to run container")
	assert.Equal(t, 1, cli.removeCalls)
}

func TestRunInvalidCommand(t *testing.T) {
	cli := newFakeClient()
	r := NewRunner(cli)

	opts := runOpts(true)
	opts.Command = `python3 -c "unterminated`
	_, err := r.Run(context.Background(), opts)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid command")
	assert.Zero(t, cli.createCalls)
}

func TestRunShellAttachAndCleanup(t *testing.T) {
	tests := []struct {
		name        string
		attachErr   error
		remove      bool
		wantRemoves int
		wantErr     bool
	}{
		{name: "normal exit removes", remove: true, wantRemoves: 1},
		{name: "attach error still removes", attachErr: errors.New("transport failure"), remove: true, wantRemoves: 1, wantErr: true},
		{name: "keep on normal exit", remove: false, wantRemoves: 0},
		{name: "keep on attach error", attachErr: errors.New("transport failure"), remove: false, wantRemoves: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := newFakeClient()
			r := NewRunner(cli)

			attached := 0
			r.attach = func(ctx context.Context, c Client, id string) error {
				attached++
				assert.Equal(t, "0123456789abcdef", id)
				return tt.attachErr
			}

			opts := runOpts(tt.remove)
			opts.Command = ""
			err := r.RunShell(context.Background(), opts)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unable to start a PTY session")
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, 1, attached)
			assert.Equal(t, tt.wantRemoves, cli.removeCalls)
		})
	}
}

func TestRunShellDefaultsToShellCommand(t *testing.T) {
	cli := newFakeClient()
	r := NewRunner(cli)
	r.attach = func(ctx context.Context, c Client, id string) error { return nil }

	opts := runOpts(true)
	opts.Command = ""
	require.NoError(t, r.RunShell(context.Background(), opts))

	require.NotNil(t, cli.lastConfig)
	assert.Equal(t, []string{DefaultShellCommand}, []string(cli.lastConfig.Cmd))
	assert.True(t, cli.lastConfig.Tty)
	assert.True(t, cli.lastConfig.OpenStdin)
}

func TestRunShellMissingImageShortCircuits(t *testing.T) {
	cli := newFakeClient()
	cli.images = nil
	r := NewRunner(cli)

	attached := false
	r.attach = func(ctx context.Context, c Client, id string) error {
		attached = true
		return nil
	}

	err := r.RunShell(context.Background(), runOpts(true))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Zero(t, cli.createCalls)
	assert.False(t, attached)
}

func mustMux(t *testing.T, stdout string) []byte {
	t.Helper()
	var buf bytes.Buffer
	_, err := stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(stdout))
	require.NoError(t, err)
	return buf.Bytes()
}
