package matching

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/oggyb/qmatch/internal/server"
)

const ServiceName = "qmatch.Matching"

// Outcome values of match requests. Anything other than OutcomeFound means
// nothing was charged.
const (
	OutcomeFound               = "found"
	OutcomeNoCandidates        = "no_candidates"
	OutcomeNotEnoughCommon     = "not_enough_common"
	OutcomeInsufficientBalance = "insufficient_balance"
	OutcomeNotEnoughAnswers    = "not_enough_answers"
)

// CandidateView is the data a profile card is rendered from.
type CandidateView struct {
	MemberID   uint64 `json:"member_id"`
	Nickname   string `json:"nickname"`
	PhotoRef   string `json:"photo_ref"`
	Location   string `json:"location"`
	Bio        string `json:"bio"`
	Similarity int    `json:"similarity"`
	Common     int    `json:"common"`
}

type MatchRequest struct {
	GroupID  uint64 `json:"group_id"`
	MemberID uint64 `json:"member_id"`
}

type BestMatchResponse struct {
	Outcome   string         `json:"outcome"`
	Candidate *CandidateView `json:"candidate,omitempty"`
	Balance   int64          `json:"balance"`
	Cost      int64          `json:"cost"`
	Answered  int64          `json:"answered"`
	Required  int64          `json:"required"`
}

type AllMatchesRequest struct {
	GroupID   uint64 `json:"group_id"`
	MemberID  uint64 `json:"member_id"`
	PageToken string `json:"page_token,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type AllMatchesResponse struct {
	Outcome       string          `json:"outcome"`
	Candidates    []CandidateView `json:"candidates"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

type PairRequest struct {
	GroupID     uint64 `json:"group_id"`
	SubjectID   uint64 `json:"subject_id"`
	CandidateID uint64 `json:"candidate_id"`
}

type SetStatusRequest struct {
	GroupID     uint64 `json:"group_id"`
	SubjectID   uint64 `json:"subject_id"`
	CandidateID uint64 `json:"candidate_id"`
	Status      string `json:"status"`
}

// StatusResponse reports the stored status. Previous is empty when no row existed.
type StatusResponse struct {
	Status   string `json:"status,omitempty"`
	Previous string `json:"previous,omitempty"`
	Exists   bool   `json:"exists"`
}

type ClearPostponedResponse struct{}

type RespondRequest struct {
	GroupID     uint64 `json:"group_id"`
	ResponderID uint64 `json:"responder_id"`
	RequesterID uint64 `json:"requester_id"`
	Decision    string `json:"decision"`
}

type IncomingRequestsRequest struct {
	GroupID   uint64 `json:"group_id"`
	MemberID  uint64 `json:"member_id"`
	PageToken string `json:"page_token,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type Requester struct {
	MemberID    uint64    `json:"member_id"`
	RequestedAt time.Time `json:"requested_at"`
}

type IncomingRequestsResponse struct {
	Requesters    []Requester `json:"requesters"`
	NextPageToken string      `json:"next_page_token,omitempty"`
}

type CountIncomingResponse struct {
	Count uint64 `json:"count"`
}

type ConnectResponse struct {
	Created bool   `json:"created"`
	Result  string `json:"result"`
}

type CloseConnectionResponse struct{}

type ListConnectionsRequest struct {
	GroupID  uint64 `json:"group_id"`
	MemberID uint64 `json:"member_id"`
}

type ConnectionView struct {
	MemberID uint64    `json:"member_id"`
	Since    time.Time `json:"since"`
}

type ListConnectionsResponse struct {
	Connections []ConnectionView `json:"connections"`
}

// MatchingServer is the Matching gRPC API: candidate selection, relationship
// statuses and the connection ledger.
type MatchingServer interface {
	BestMatch(context.Context, *MatchRequest) (*BestMatchResponse, error)
	AllMatches(context.Context, *AllMatchesRequest) (*AllMatchesResponse, error)

	SetStatus(context.Context, *SetStatusRequest) (*StatusResponse, error)
	GetStatus(context.Context, *PairRequest) (*StatusResponse, error)
	ClearPostponed(context.Context, *PairRequest) (*ClearPostponedResponse, error)
	RequestConnection(context.Context, *PairRequest) (*StatusResponse, error)
	RespondToRequest(context.Context, *RespondRequest) (*StatusResponse, error)
	ListIncomingRequests(context.Context, *IncomingRequestsRequest) (*IncomingRequestsResponse, error)
	CountIncomingRequests(context.Context, *MatchRequest) (*CountIncomingResponse, error)

	Connect(context.Context, *PairRequest) (*ConnectResponse, error)
	CloseConnection(context.Context, *PairRequest) (*CloseConnectionResponse, error)
	ListConnections(context.Context, *ListConnectionsRequest) (*ListConnectionsResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchingServer)(nil),
	Methods: []grpc.MethodDesc{
		server.UnaryMethod(ServiceName, "BestMatch", MatchingServer.BestMatch),
		server.UnaryMethod(ServiceName, "AllMatches", MatchingServer.AllMatches),
		server.UnaryMethod(ServiceName, "SetStatus", MatchingServer.SetStatus),
		server.UnaryMethod(ServiceName, "GetStatus", MatchingServer.GetStatus),
		server.UnaryMethod(ServiceName, "ClearPostponed", MatchingServer.ClearPostponed),
		server.UnaryMethod(ServiceName, "RequestConnection", MatchingServer.RequestConnection),
		server.UnaryMethod(ServiceName, "RespondToRequest", MatchingServer.RespondToRequest),
		server.UnaryMethod(ServiceName, "ListIncomingRequests", MatchingServer.ListIncomingRequests),
		server.UnaryMethod(ServiceName, "CountIncomingRequests", MatchingServer.CountIncomingRequests),
		server.UnaryMethod(ServiceName, "Connect", MatchingServer.Connect),
		server.UnaryMethod(ServiceName, "CloseConnection", MatchingServer.CloseConnection),
		server.UnaryMethod(ServiceName, "ListConnections", MatchingServer.ListConnections),
	},
	Metadata: "qmatch/matching",
}
