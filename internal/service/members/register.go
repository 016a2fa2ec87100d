package members

import (
	"google.golang.org/grpc"

	"github.com/oggyb/qmatch/internal/app"
)

// Registrar ties the Members service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Members service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Members service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&serviceDesc, NewMembersService(r.appCtx))
}
