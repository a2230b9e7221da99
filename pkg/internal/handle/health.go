package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/studiovault/pkg/context"
)

const healthTimeout = 2 * time.Second

func unhealthy(c *gin.Context, component, msg string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"component": component, "status": "unhealthy", "error": msg})
}

func healthy(c *gin.Context, component string, extra gin.H) {
	body := gin.H{"component": component, "status": "ok"}
	for k, v := range extra {
		body[k] = v
	}

	c.JSON(http.StatusOK, body)
}

// HealthDB 数据库健康检查.
func HealthDB(c *gin.Context) {
	dbc := ctxPkg.GetDBClient(c.Request.Context())
	if dbc == nil || dbc.DB == nil {
		unhealthy(c, "db", "db client not initialized")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	sqlDB, err := dbc.DB.DB()
	if err != nil {
		unhealthy(c, "db", err.Error())
		return
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		unhealthy(c, "db", err.Error())
		return
	}

	healthy(c, "db", nil)
}

// HealthObjects 对象存储健康检查，列举一个对象验证连通性与权限.
func HealthObjects(c *gin.Context) {
	objects := ctxPkg.GetObjectStore(c.Request.Context())
	if objects == nil {
		unhealthy(c, "objects", "object store not initialized")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if _, err := objects.ListObjects(ctx, "", "", 1); err != nil {
		unhealthy(c, "objects", err.Error())
		return
	}

	healthy(c, "objects", nil)
}

// HealthKV KV 健康检查.
func HealthKV(c *gin.Context) {
	kvc := ctxPkg.GetKVClient(c.Request.Context())
	if kvc == nil || kvc.KVStore == nil {
		unhealthy(c, "kv", "kv client not initialized")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if _, err := kvc.Exists(ctx, "health:ping"); err != nil {
		unhealthy(c, "kv", err.Error())
		return
	}

	healthy(c, "kv", gin.H{"type": string(kvc.Type())})
}

// HealthMQ 消息队列健康检查.
func HealthMQ(c *gin.Context) {
	mqc := ctxPkg.GetMQClient(c.Request.Context())
	if mqc == nil {
		unhealthy(c, "mq", "mq client not initialized")
		return
	}

	healthy(c, "mq", gin.H{"type": string(mqc.Type())})
}

// HealthLedger 账本健康检查：能读到（或初始化）快照即为健康.
func HealthLedger(c *gin.Context) {
	led := ctxPkg.GetLedger(c.Request.Context())
	if led == nil {
		unhealthy(c, "ledger", "ledger not initialized")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	snap, err := led.GetSnapshot(ctx)
	if err != nil {
		unhealthy(c, "ledger", err.Error())
		return
	}

	healthy(c, "ledger", gin.H{"last_updated_at": snap.LastUpdatedAt})
}

// HealthReady 就绪检查：账本与对象存储均可用.
func HealthReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := gin.H{}
	ready := true

	if objects := ctxPkg.GetObjectStore(ctx); objects == nil {
		checks["objects"], ready = "not initialized", false
	} else if _, err := objects.ListObjects(ctx, "", "", 1); err != nil {
		checks["objects"], ready = err.Error(), false
	} else {
		checks["objects"] = "ok"
	}

	if led := ctxPkg.GetLedger(ctx); led == nil {
		checks["ledger"], ready = "not initialized", false
	} else if _, err := led.GetSnapshot(ctx); err != nil {
		checks["ledger"], ready = err.Error(), false
	} else {
		checks["ledger"] = "ok"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{"ready": ready, "checks": checks})
}
