package members

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oggyb/qmatch/internal/server"
)

const ServiceName = "qmatch.Members"

// Profile is the editable part of a member.
type Profile struct {
	Nickname   string `json:"nickname"`
	PhotoRef   string `json:"photo_ref"`
	Location   string `json:"location"`
	Gender     string `json:"gender"`
	LookingFor string `json:"looking_for"`
	Bio        string `json:"bio"`
}

type MemberView struct {
	GroupID uint64  `json:"group_id"`
	UserID  uint64  `json:"user_id"`
	Profile Profile `json:"profile"`
	Balance int64   `json:"balance"`
}

type CreateGroupRequest struct {
	Title   string `json:"title"`
	OwnerID uint64 `json:"owner_id"`
}

type CreateGroupResponse struct {
	GroupID uint64 `json:"group_id"`
}

type JoinGroupRequest struct {
	GroupID uint64  `json:"group_id"`
	UserID  uint64  `json:"user_id"`
	Profile Profile `json:"profile"`
}

type MemberRequest struct {
	GroupID uint64 `json:"group_id"`
	UserID  uint64 `json:"user_id"`
}

type MemberResponse struct {
	Member MemberView `json:"member"`
}

type LeaveGroupResponse struct{}

// MembersServer is the Members gRPC API.
type MembersServer interface {
	CreateGroup(context.Context, *CreateGroupRequest) (*CreateGroupResponse, error)
	JoinGroup(context.Context, *JoinGroupRequest) (*MemberResponse, error)
	UpdateProfile(context.Context, *JoinGroupRequest) (*MemberResponse, error)
	GetMember(context.Context, *MemberRequest) (*MemberResponse, error)
	LeaveGroup(context.Context, *MemberRequest) (*LeaveGroupResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MembersServer)(nil),
	Methods: []grpc.MethodDesc{
		server.UnaryMethod(ServiceName, "CreateGroup", MembersServer.CreateGroup),
		server.UnaryMethod(ServiceName, "JoinGroup", MembersServer.JoinGroup),
		server.UnaryMethod(ServiceName, "UpdateProfile", MembersServer.UpdateProfile),
		server.UnaryMethod(ServiceName, "GetMember", MembersServer.GetMember),
		server.UnaryMethod(ServiceName, "LeaveGroup", MembersServer.LeaveGroup),
	},
	Metadata: "qmatch/members",
}
