package httpapi

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"gatehouse.io/internal/auth"
	"gatehouse.io/internal/obs"
)

// Methods callable without a bearer token.
var publicGRPCMethods = map[string]struct{}{
	healthpb.Health_Check_FullMethodName: {},
	healthpb.Health_Watch_FullMethodName: {},
}

// GRPCServer serves grpc.health.v1.Health backed by the readiness probe.
// Every other method requires "authorization: Bearer <token>" metadata.
type GRPCServer struct {
	health    *health.Server
	readiness readinessChecker
	auth      *auth.Service
}

func NewGRPCServer(r readinessChecker, authSvc *auth.Service) *GRPCServer {
	if r == nil {
		r = ReadyProbe{}
	}
	return &GRPCServer{
		health:    health.NewServer(),
		readiness: r,
		auth:      authSvc,
	}
}

// NewServer builds a grpc.Server with the auth interceptors and the health service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(s.unaryAuth),
		grpc.ChainStreamInterceptor(s.streamAuth),
	)
	srv := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(srv, readinessHealth{Server: s.health, parent: s})
	return srv
}

// Shutdown marks every service as not serving.
func (s *GRPCServer) Shutdown() {
	s.health.Shutdown()
}

func (s *GRPCServer) refresh(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING
	if err := s.readiness.Check(ctx); err != nil {
		obs.Logger().WithError(err).Warn("grpc readiness check failed")
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	obs.SetReady(st == healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(serviceName, st)
}

func (s *GRPCServer) authenticate(ctx context.Context, method string) (context.Context, error) {
	if _, ok := publicGRPCMethods[method]; ok {
		return ctx, nil
	}
	if s.auth == nil {
		return nil, status.Error(codes.Unauthenticated, msgInvalidToken)
	}
	md, _ := metadata.FromIncomingContext(ctx)
	var header string
	if vals := md.Get(strings.ToLower(authHeader)); len(vals) > 0 {
		header = vals[0]
	}
	token, err := extractBearerToken(header)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	principal, err := s.auth.AuthenticateToken(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return nil, status.Error(codes.Unauthenticated, msgInvalidToken)
		}
		obs.Logger().WithError(err).WithField("method", method).Error("grpc authentication failed")
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return auth.ContextWithPrincipal(ctx, principal), nil
}

func (s *GRPCServer) unaryAuth(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	ctx, err := s.authenticate(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

func (s *GRPCServer) streamAuth(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if _, err := s.authenticate(ss.Context(), info.FullMethod); err != nil {
		return err
	}
	return handler(srv, ss)
}

// readinessHealth re-runs the readiness probe before answering Check.
type readinessHealth struct {
	*health.Server
	parent *GRPCServer
}

func (h readinessHealth) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	h.parent.refresh(ctx)
	return h.Server.Check(ctx, req)
}
