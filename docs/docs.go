// Package docs 提供 Swagger 文档，内容与 handle 包中的 swag 注释保持一致.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/license/mit/"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/media": {
            "delete": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "媒体"
                ],
                "summary": "删除媒体文件",
                "parameters": [
                    {
                        "type": "string",
                        "description": "对象键",
                        "name": "key",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "删除结果",
                        "schema": {
                            "$ref": "#/definitions/types.DeleteMediaResponse"
                        }
                    },
                    "400": {
                        "description": "参数错误",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "404": {
                        "description": "对象不存在",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/media/folder": {
            "delete": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "媒体"
                ],
                "summary": "按前缀删除",
                "parameters": [
                    {
                        "type": "string",
                        "description": "对象键前缀",
                        "name": "prefix",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "删除结果",
                        "schema": {
                            "$ref": "#/definitions/types.DeleteFolderResponse"
                        }
                    },
                    "207": {
                        "description": "部分删除，result 为已删除部分",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "400": {
                        "description": "参数错误",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    }
                }
            }
        },
        "/api/v1/media/upload": {
            "post": {
                "description": "预检配额后写入对象存储并记账；记账失败时删除已写入的对象",
                "consumes": [
                    "multipart/form-data"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "媒体"
                ],
                "summary": "上传媒体文件",
                "parameters": [
                    {
                        "type": "file",
                        "description": "媒体文件",
                        "name": "file",
                        "in": "formData",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "用途: profile, gallery, photo, film, testimonial, about",
                        "name": "kind",
                        "in": "formData",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "子目录",
                        "name": "folder",
                        "in": "formData"
                    }
                ],
                "responses": {
                    "201": {
                        "description": "上传结果",
                        "schema": {
                            "$ref": "#/definitions/types.UploadMediaResponse"
                        }
                    },
                    "400": {
                        "description": "参数错误或不支持的媒体类型",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "413": {
                        "description": "文件过大",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "429": {
                        "description": "当日上传次数已满",
                        "schema": {
                            "$ref": "#/definitions/types.QuotaErrorResponse"
                        }
                    },
                    "507": {
                        "description": "存储空间不足",
                        "schema": {
                            "$ref": "#/definitions/types.QuotaErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/media/url": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "媒体"
                ],
                "summary": "获取读取链接",
                "parameters": [
                    {
                        "type": "string",
                        "description": "对象键",
                        "name": "key",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "有效期，如 15m",
                        "name": "expiry",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "读取链接",
                        "schema": {
                            "$ref": "#/definitions/types.MediaURLResponse"
                        }
                    },
                    "400": {
                        "description": "参数错误",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "404": {
                        "description": "对象不存在",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/storage/reconcile": {
            "post": {
                "description": "分页扫描全部对象，重建总字节数与文件数并清零当日上传计数（需要 admin）",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "存储"
                ],
                "summary": "立即对账",
                "responses": {
                    "200": {
                        "description": "对账后的快照与上限",
                        "schema": {
                            "$ref": "#/definitions/ledger.Status"
                        }
                    },
                    "403": {
                        "description": "权限不足",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "500": {
                        "description": "扫描失败，原快照不变",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/storage/status": {
            "get": {
                "description": "返回账本快照与配额上限，上限为 0 表示不限制；plain 读取不做日切归一化",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "存储"
                ],
                "summary": "存储用量与配额",
                "responses": {
                    "200": {
                        "description": "快照与上限",
                        "schema": {
                            "$ref": "#/definitions/ledger.Status"
                        }
                    },
                    "500": {
                        "description": "服务器内部错误",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "503": {
                        "description": "账本未配置",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "ledger.Limits": {
            "type": "object",
            "properties": {
                "storageBytes": {
                    "type": "integer"
                },
                "uploadOpsDaily": {
                    "type": "integer"
                }
            }
        },
        "ledger.Snapshot": {
            "type": "object",
            "properties": {
                "lastReconciledAt": {
                    "type": "string"
                },
                "lastUpdatedAt": {
                    "type": "string"
                },
                "totalBytes": {
                    "type": "integer"
                },
                "totalFiles": {
                    "type": "integer"
                },
                "uploadOpsResetAt": {
                    "type": "string"
                },
                "uploadOpsToday": {
                    "type": "integer"
                }
            }
        },
        "ledger.Status": {
            "type": "object",
            "properties": {
                "limits": {
                    "$ref": "#/definitions/ledger.Limits"
                },
                "snapshot": {
                    "$ref": "#/definitions/ledger.Snapshot"
                }
            }
        },
        "types.DeleteFolderResponse": {
            "type": "object",
            "properties": {
                "bytes": {
                    "type": "integer"
                },
                "deleted": {
                    "type": "integer"
                },
                "ledger_updated": {
                    "type": "boolean"
                },
                "prefix": {
                    "type": "string"
                }
            }
        },
        "types.DeleteMediaResponse": {
            "type": "object",
            "properties": {
                "ledger_updated": {
                    "description": "LedgerUpdated 为 false 表示账本扣减失败，等待下一次对账修正",
                    "type": "boolean"
                },
                "object_key": {
                    "type": "string"
                },
                "size": {
                    "type": "integer"
                }
            }
        },
        "types.MediaURLResponse": {
            "type": "object",
            "properties": {
                "expires_at": {
                    "type": "string"
                },
                "object_key": {
                    "type": "string"
                },
                "url": {
                    "type": "string"
                }
            }
        },
        "types.QuotaErrorResponse": {
            "type": "object",
            "properties": {
                "current": {
                    "type": "integer"
                },
                "error": {
                    "type": "string"
                },
                "kind": {
                    "description": "Kind storage_bytes 或 upload_ops_daily",
                    "type": "string"
                },
                "limit": {
                    "type": "integer"
                },
                "requested": {
                    "type": "integer"
                }
            }
        },
        "types.UploadMediaResponse": {
            "type": "object",
            "properties": {
                "content_type": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "etag": {
                    "type": "string"
                },
                "file_name": {
                    "type": "string"
                },
                "folder": {
                    "type": "string"
                },
                "id": {
                    "type": "integer"
                },
                "kind": {
                    "type": "string"
                },
                "object_key": {
                    "type": "string"
                },
                "size": {
                    "type": "integer"
                },
                "url": {
                    "type": "string"
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo 文档元信息，Host 与 Version 在注册路由时按配置覆盖.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "StudioVault API",
	Description:      "StudioVault 管理摄影工作室的媒体文件与存储用量账本：上传前检查配额，上传成功后记账，支持全量对账。",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
