package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/feedkeeper/internal/logging"
	"github.com/dmitrijs2005/feedkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/feedkeeper/internal/server/models"
	"github.com/dmitrijs2005/feedkeeper/internal/wire"
	"google.golang.org/grpc"
)

// Households is the use-case layer the handlers delegate to;
// *services.HouseholdService implements it.
type Households interface {
	CreateHousehold(ctx context.Context, id string) error
	FindHousehold(ctx context.Context, id string) (*models.Household, error)
	RegisterMember(ctx context.Context, householdID, deviceID string) (string, error)
	UpsertRecord(ctx context.Context, r wire.Record) (bool, error)
	ChangedSince(ctx context.Context, q wire.ChangedSinceQuery) ([]wire.Record, error)
	Archive(ctx context.Context, householdID string) (wire.ArchiveLink, error)
}

type GRPCServer struct {
	address    string
	households Households
	metrics    *metrics.Metrics
	logger     logging.Logger
}

var _ HouseholdServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, hs Households, m *metrics.Metrics) *GRPCServer {
	return &GRPCServer{
		address:    a,
		logger:     l.With("module", "grpc_server"),
		households: hs,
		metrics:    m,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.deviceIDInterceptor, s.observeInterceptor))
	RegisterHouseholdServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis and stops gracefully once ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
