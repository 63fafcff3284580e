package controllers

import (
	"encoding/json"
	"net/http"

	"PracticeHub360/services"

	redis "github.com/KanapuramVaishnavi/Core/config/redis"
	util "github.com/KanapuramVaishnavi/Core/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const PatientKey = "PATIENT:"

// ViewCache caches read models per request context.
type ViewCache interface {
	Get(c *gin.Context, key string, out interface{}) (bool, error)
	Set(c *gin.Context, key string, value interface{}) error
	Delete(c *gin.Context, key string) error
}

// RedisCache is the shared redis cache configured by the server.
type RedisCache struct{}

func (RedisCache) Get(c *gin.Context, key string, out interface{}) (bool, error) {
	cached := make(map[string]interface{})
	found, err := redis.GetCache(c, key, &cached)
	if err != nil || !found {
		return false, err
	}
	return true, remarshal(cached, out)
}

func (RedisCache) Set(c *gin.Context, key string, value interface{}) error {
	return redis.SetCache(c, key, value)
}

func (RedisCache) Delete(c *gin.Context, key string) error {
	return redis.DeleteCache(c, key)
}

// NoCache disables caching.
type NoCache struct{}

func (NoCache) Get(*gin.Context, string, interface{}) (bool, error) { return false, nil }
func (NoCache) Set(*gin.Context, string, interface{}) error          { return nil }
func (NoCache) Delete(*gin.Context, string) error                    { return nil }

type Handler struct {
	svc    *services.Service
	cache  ViewCache
	logger *zap.Logger
}

func NewHandler(svc *services.Service, cache ViewCache, logger *zap.Logger) *Handler {
	if cache == nil {
		cache = NoCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, cache: cache, logger: logger}
}

// caller is the practitioner code the JWT middleware put on the context.
func caller(c *gin.Context) string {
	return c.GetString("code")
}

func statusFor(err error) int {
	switch services.KindOf(err) {
	case services.KindAuthenticationRequired:
		return http.StatusUnauthorized
	case services.KindAuthorizationDenied:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindValidationConflict:
		return http.StatusConflict
	case services.KindInvalidInput:
		return http.StatusBadRequest
	case services.KindReviewRequired:
		return http.StatusAccepted
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, util.FailedResponse(err))
}

// respond wraps v in the success envelope, which only carries strings, lists
// and maps, so structs are flattened through their JSON form first.
func (h *Handler) respond(c *gin.Context, status int, v interface{}) {
	data, err := envelope(v)
	if err != nil {
		h.logger.Error("response not encodable", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, util.FailedResponse(err))
		return
	}
	c.JSON(status, util.SuccessResponse(data))
}

func envelope(v interface{}) (interface{}, error) {
	var out interface{}
	if err := remarshal(v, &out); err != nil {
		return nil, err
	}
	switch out.(type) {
	case map[string]interface{}, []interface{}, string:
		return out, nil
	case nil:
		return []interface{}{}, nil
	}
	return map[string]interface{}{"result": out}, nil
}

func remarshal(in, out interface{}) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (h *Handler) evict(c *gin.Context, key string) {
	if err := h.cache.Delete(c, key); err != nil {
		h.logger.Warn("cache eviction failed", zap.String("key", key), zap.Error(err))
	}
}
