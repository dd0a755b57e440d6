// Package relay talks to the relay broker that hands out session allocations
// and join codes, so a host can be found without sharing its address.
package relay

// Wire types shared with the broker in master/.

type SignInResponse struct {
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
}

type CreateAllocationRequest struct {
	MaxConnections int `json:"maxConnections"`
}

type Allocation struct {
	AllocationID   string `json:"allocationId"`
	MaxConnections int    `json:"maxConnections"`
}

type JoinCodeResponse struct {
	JoinCode string `json:"joinCode"`
}

type PublishRequest struct {
	Address string `json:"address"`
}

type HeartbeatRequest struct {
	Players int `json:"players"`
}

type JoinRequest struct {
	JoinCode string `json:"joinCode"`
}

// JoinAllocation is what a participant needs to reach a hosted session.
type JoinAllocation struct {
	AllocationID string `json:"allocationId"`
	Address      string `json:"address"`
}

// ErrorResponse is the body of every non-2xx broker response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Error codes carried in ErrorResponse.Error.
const (
	CodeBadRequest         = "bad_request"
	CodeUnauthorized       = "unauthorized"
	CodeAllocationNotFound = "allocation_not_found"
	CodeJoinCodeNotFound   = "join_code_not_found"
	CodeAllocationFull     = "allocation_full"
	CodeNotReady           = "not_ready"
	CodeInternal           = "internal"
)
