package mcp

import (
	"context"
	"encoding/json"
	"math"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pkg/errors"

	"github.com/eytandecker/headset-pilot/internal/controller"
	"github.com/eytandecker/headset-pilot/internal/link"
	"github.com/eytandecker/headset-pilot/internal/strategy"
	"github.com/eytandecker/headset-pilot/internal/telemetry"
	"github.com/eytandecker/headset-pilot/pkg/types"
)

// StatusReader is the subset of telemetry.StatusMonitor used by the MCP server.
type StatusReader interface {
	Lines() []string
	Latest(key telemetry.Key) (any, error)
}

// Server wraps the MCP SDK server and exposes drone control as tools.
type Server struct {
	sdk    *mcpsdk.Server
	drone  controller.Controller
	status StatusReader
}

// NewServer creates a Server and registers the operator tools.
func NewServer(drone controller.Controller, status StatusReader) *Server {
	s := &Server{
		sdk: mcpsdk.NewServer(&mcpsdk.Implementation{
			Name:    "headset-pilot",
			Version: "1.0.0",
		}, nil),
		drone:  drone,
		status: status,
	}

	mcpsdk.AddTool(s.sdk, &mcpsdk.Tool{
		Name:        "get_drone_status",
		Description: "Returns control readiness, the tracked position relative to the control origin, the gimbal attitude, the geofence, the initial location and the aircraft status lines.",
	}, s.handleGetDroneStatus)
	mcpsdk.AddTool(s.sdk, &mcpsdk.Tool{
		Name:        "prepare_drone",
		Description: "Takes off if needed and enables virtual-stick control in the given mode (headset or thumbsticks). When already in control, switches the mode.",
	}, s.handlePrepareDrone)
	mcpsdk.AddTool(s.sdk, &mcpsdk.Tool{
		Name:        "abort_control",
		Description: "Stops virtual-stick control immediately and leaves the aircraft hovering.",
	}, s.handleAbortControl)
	mcpsdk.AddTool(s.sdk, &mcpsdk.Tool{
		Name:        "land_drone",
		Description: "Stops control and starts automatic landing.",
	}, s.handleLandDrone)
	mcpsdk.AddTool(s.sdk, &mcpsdk.Tool{
		Name:        "nudge_velocity",
		Description: "Holds a velocity (m/s) and yaw rate (deg/s) for period_ms, then returns to hover. Frame is body (forward/right) or ground (north/east).",
	}, s.handleNudgeVelocity)
	return s
}

// Run starts the MCP server over stdio and blocks until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.sdk.Run(ctx, &mcpsdk.StdioTransport{})
}

// Connect connects the server to an existing transport (used in tests).
func (s *Server) Connect(ctx context.Context, t mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	return s.sdk.Connect(ctx, t, nil)
}

type getStatusInput struct {
	IncludeStatusLines bool `json:"include_status_lines,omitempty"`
}

type prepareInput struct {
	Mode string `json:"mode"`
}

type emptyInput struct{}

type nudgeInput struct {
	Forward  float64 `json:"forward,omitempty"`
	Right    float64 `json:"right,omitempty"`
	Rotate   float64 `json:"rotate,omitempty"`
	PeriodMS int     `json:"period_ms"`
	Frame    string  `json:"frame,omitempty"`
}

// DroneStatusResponse is the JSON payload of get_drone_status.
type DroneStatusResponse struct {
	Ready           bool              `json:"ready"`
	State           string            `json:"state"`
	Mode            string            `json:"mode"`
	LinkConnected   bool              `json:"link_connected"`
	Position        types.Vector3D    `json:"position_m"`
	OrientationSCS  *float64          `json:"orientation_scs_deg,omitempty"`
	InitialLocation *types.Location3D `json:"initial_location,omitempty"`
	GimbalAttitude  *types.Attitude   `json:"gimbal_attitude,omitempty"`
	Fence           *FenceStatus      `json:"fence,omitempty"`
	StatusLines     []string          `json:"status_lines,omitempty"`
	Timestamp       string            `json:"timestamp"`
}

// FenceStatus reports the geofence boundary in metres and whether the
// tracked position is inside it.
type FenceStatus struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Inside bool    `json:"inside"`
}

// ActionResponse is returned by the control tools.
type ActionResponse struct {
	Accepted  bool   `json:"accepted"`
	State     string `json:"state"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is returned when a tool cannot do what was asked.
type ErrorResponse struct {
	Error       string `json:"error"`
	Code        string `json:"code"`
	Recoverable bool   `json:"recoverable"`
	Suggestion  string `json:"suggestion"`
	Timestamp   string `json:"timestamp"`
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

func textResult(v any) (*mcpsdk.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, nil, nil
}

func (s *Server) linkConnected() bool {
	v, err := s.status.Latest(telemetry.KeyConnection)
	if err != nil {
		return false
	}
	connected, _ := v.(bool)
	return connected
}

func (s *Server) handleGetDroneStatus(
	ctx context.Context,
	req *mcpsdk.CallToolRequest,
	input getStatusInput,
) (*mcpsdk.CallToolResult, any, error) {
	st := s.drone.Status()
	resp := DroneStatusResponse{
		Ready:           st.State == controller.StateReady,
		State:           st.State.String(),
		Mode:            st.Mode.String(),
		LinkConnected:   s.linkConnected(),
		Position:        st.Position,
		InitialLocation: st.InitialLocation,
		GimbalAttitude:  st.GimbalAttitude,
		Timestamp:       now(),
	}
	if st.Fence != nil {
		resp.Fence = &FenceStatus{
			Left:   st.Fence.Left,
			Top:    st.Fence.Top,
			Right:  st.Fence.Right,
			Bottom: st.Fence.Bottom,
			Inside: st.InsideFence,
		}
	}
	if !math.IsNaN(st.OrientationInSCS) {
		o := st.OrientationInSCS
		resp.OrientationSCS = &o
	}
	if input.IncludeStatusLines {
		resp.StatusLines = s.status.Lines()
	}
	return textResult(resp)
}

func (s *Server) actionResult() (*mcpsdk.CallToolResult, any, error) {
	return textResult(ActionResponse{
		Accepted:  true,
		State:     s.drone.Status().State.String(),
		Timestamp: now(),
	})
}

func (s *Server) handlePrepareDrone(
	ctx context.Context,
	req *mcpsdk.CallToolRequest,
	input prepareInput,
) (*mcpsdk.CallToolResult, any, error) {
	mode, err := strategy.ParseMode(input.Mode)
	if err != nil {
		return s.errorResult(err), nil, nil
	}
	s.drone.PrepareDrone(mode)
	return s.actionResult()
}

func (s *Server) handleAbortControl(
	ctx context.Context,
	req *mcpsdk.CallToolRequest,
	input emptyInput,
) (*mcpsdk.CallToolResult, any, error) {
	s.drone.Abort()
	return s.actionResult()
}

func (s *Server) handleLandDrone(
	ctx context.Context,
	req *mcpsdk.CallToolRequest,
	input emptyInput,
) (*mcpsdk.CallToolResult, any, error) {
	s.drone.Land()
	return s.actionResult()
}

var errBadPeriod = errors.New("period_ms must be between 1 and 10000")

func (s *Server) handleNudgeVelocity(
	ctx context.Context,
	req *mcpsdk.CallToolRequest,
	input nudgeInput,
) (*mcpsdk.CallToolResult, any, error) {
	if input.PeriodMS <= 0 || input.PeriodMS > 10000 {
		return s.errorResult(errBadPeriod), nil, nil
	}
	period := time.Duration(input.PeriodMS) * time.Millisecond

	var err error
	switch input.Frame {
	case "", "body":
		err = s.drone.ChangeDroneVelocity(input.Forward, input.Right, input.Rotate, period)
	case "ground":
		err = s.drone.ChangeDroneVelocityBaseOnGround(input.Forward, input.Right, input.Rotate, period)
	default:
		err = errors.Errorf("unknown frame %q", input.Frame)
	}
	if err != nil {
		return s.errorResult(err), nil, nil
	}
	return s.actionResult()
}

func (s *Server) errorResult(err error) *mcpsdk.CallToolResult {
	resp := ErrorResponse{
		Error:     err.Error(),
		Timestamp: now(),
	}

	switch {
	case errors.Is(err, controller.ErrNotReady):
		resp.Code = "DRONE_NOT_READY"
		resp.Recoverable = true
		resp.Suggestion = "Call prepare_drone and wait for get_drone_status to report ready."
	case errors.Is(err, link.ErrNotConnected):
		resp.Code = "LINK_NOT_CONNECTED"
		resp.Recoverable = true
		resp.Suggestion = "Ensure the flight-control bridge is running."
	case errors.Is(err, strategy.ErrUnknownMode), errors.Is(err, errBadPeriod):
		resp.Code = "INVALID_ARGUMENT"
		resp.Recoverable = true
		resp.Suggestion = "Check the tool arguments."
	default:
		resp.Code = "UNKNOWN_ERROR"
		resp.Suggestion = "Check application logs for details."
	}

	data, _ := json.Marshal(resp)
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
		IsError: true,
	}
}
