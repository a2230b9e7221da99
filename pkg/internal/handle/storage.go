package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/studiovault/pkg/context"
	"github.com/yeisme/studiovault/pkg/internal/ledger"
	"github.com/yeisme/studiovault/pkg/internal/service"
)

// StorageStatus 当前用量快照与配额上限，没有快照时先对账生成.
//
//	@Summary		存储用量与配额
//	@Description	返回账本快照与配额上限，上限为 0 表示不限制；plain 读取不做日切归一化
//	@Tags			存储
//	@Produce		json
//	@Success		200	{object}	ledger.Status		"快照与上限"
//	@Failure		500	{object}	map[string]string	"服务器内部错误"
//	@Failure		503	{object}	map[string]string	"账本未配置"
//	@Router			/api/v1/storage/status [get]
func StorageStatus(c *gin.Context) {
	led := ctxPkg.GetLedger(c.Request.Context())
	if led == nil {
		respondError(c, service.ErrNotConfigured)
		return
	}

	status, err := led.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// StorageReconcile 立即全量扫描对象存储并替换快照，失败时原快照保持不变.
//
//	@Summary		立即对账
//	@Description	分页扫描全部对象，重建总字节数与文件数并清零当日上传计数（需要 admin）
//	@Tags			存储
//	@Produce		json
//	@Success		200	{object}	ledger.Status		"对账后的快照与上限"
//	@Failure		403	{object}	map[string]string	"权限不足"
//	@Failure		500	{object}	map[string]string	"扫描失败，原快照不变"
//	@Router			/api/v1/storage/reconcile [post]
func StorageReconcile(c *gin.Context) {
	led := ctxPkg.GetLedger(c.Request.Context())
	if led == nil {
		respondError(c, service.ErrNotConfigured)
		return
	}

	snap, err := led.Reconcile(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ledger.Status{Snapshot: snap, Limits: led.Limits()})
}
