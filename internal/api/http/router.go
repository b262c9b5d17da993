// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"

	"pdf-ingest/internal/api/http/middleware"
)

// Router 路由装配
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
}

// NewRouter 创建 Router
func NewRouter(h *Handler, mw *middleware.Middleware) *Router {
	return &Router{handler: h, middleware: mw}
}

// Build 组装 Hertz 服务器；opts 供调用方追加 tracer 等服务器选项
func (r *Router) Build(addr string, opts ...hertzconfig.Option) *server.Hertz {
	serverOpts := append([]hertzconfig.Option{server.WithHostPorts(addr)}, opts...)
	s := server.Default(serverOpts...)

	s.Use(r.middleware.CORS(), r.middleware.AccessLog())

	api := s.Group("/api")
	api.POST("/upload", r.handler.Upload)
	api.POST("/jobs/process", r.handler.TriggerJob)
	api.GET("/jobs", r.handler.JobStatus)
	api.GET("/collections", r.handler.ListCollections)
	api.POST("/collections", r.handler.CreateCollection)

	s.GET("/health", r.handler.Health)
	s.GET("/metrics", r.handler.Metrics)

	return s
}
