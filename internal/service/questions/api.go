package questions

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/oggyb/qmatch/internal/server"
)

const ServiceName = "qmatch.Questions"

type QuestionView struct {
	ID        uint64    `json:"id"`
	GroupID   uint64    `json:"group_id"`
	AuthorID  uint64    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateQuestionRequest struct {
	GroupID  uint64 `json:"group_id"`
	AuthorID uint64 `json:"author_id"`
	Text     string `json:"text"`
}

type QuestionResponse struct {
	Question QuestionView `json:"question"`
}

type DeleteQuestionRequest struct {
	GroupID    uint64 `json:"group_id"`
	QuestionID uint64 `json:"question_id"`
	ActorID    uint64 `json:"actor_id"`
}

type DeleteQuestionResponse struct{}

type NextQuestionRequest struct {
	GroupID  uint64 `json:"group_id"`
	MemberID uint64 `json:"member_id"`
}

// NextQuestionResponse carries the delivered question, or Exhausted when the
// member has answered everything. PreviousValue is set when the member chose
// a value earlier and then withdrew it.
type NextQuestionResponse struct {
	Question      *QuestionView `json:"question,omitempty"`
	PreviousValue *int8         `json:"previous_value,omitempty"`
	Exhausted     bool          `json:"exhausted"`
}

type DeliverQuestionRequest struct {
	GroupID    uint64 `json:"group_id"`
	QuestionID uint64 `json:"question_id"`
	MemberID   uint64 `json:"member_id"`
}

type DeliverQuestionResponse struct {
	Created bool `json:"created"`
}

type AnswerQuestionRequest struct {
	GroupID    uint64 `json:"group_id"`
	QuestionID uint64 `json:"question_id"`
	MemberID   uint64 `json:"member_id"`
	Value      int64  `json:"value"`
}

type AnswerQuestionResponse struct {
	Outcome        string `json:"outcome"`
	Status         string `json:"status"`
	Value          *int8  `json:"value,omitempty"`
	ShowAllOptions bool   `json:"show_all_options"`
	Credited       int64  `json:"credited"`
	Balance        int64  `json:"balance"`
}

type AnsweredCountRequest struct {
	GroupID  uint64 `json:"group_id"`
	MemberID uint64 `json:"member_id"`
}

type AnsweredCountResponse struct {
	Count    int64 `json:"count"`
	Required int64 `json:"required"`
}

// QuestionsServer is the Questions gRPC API.
type QuestionsServer interface {
	CreateQuestion(context.Context, *CreateQuestionRequest) (*QuestionResponse, error)
	DeleteQuestion(context.Context, *DeleteQuestionRequest) (*DeleteQuestionResponse, error)
	NextQuestion(context.Context, *NextQuestionRequest) (*NextQuestionResponse, error)
	DeliverQuestion(context.Context, *DeliverQuestionRequest) (*DeliverQuestionResponse, error)
	AnswerQuestion(context.Context, *AnswerQuestionRequest) (*AnswerQuestionResponse, error)
	AnsweredCount(context.Context, *AnsweredCountRequest) (*AnsweredCountResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*QuestionsServer)(nil),
	Methods: []grpc.MethodDesc{
		server.UnaryMethod(ServiceName, "CreateQuestion", QuestionsServer.CreateQuestion),
		server.UnaryMethod(ServiceName, "DeleteQuestion", QuestionsServer.DeleteQuestion),
		server.UnaryMethod(ServiceName, "NextQuestion", QuestionsServer.NextQuestion),
		server.UnaryMethod(ServiceName, "DeliverQuestion", QuestionsServer.DeliverQuestion),
		server.UnaryMethod(ServiceName, "AnswerQuestion", QuestionsServer.AnswerQuestion),
		server.UnaryMethod(ServiceName, "AnsweredCount", QuestionsServer.AnsweredCount),
	},
	Metadata: "qmatch/questions",
}
