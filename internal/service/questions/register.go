package questions

import (
	"google.golang.org/grpc"

	"github.com/oggyb/qmatch/internal/app"
)

// Registrar ties the Questions service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Questions service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Questions service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&serviceDesc, NewQuestionsService(r.appCtx))
}
