package admin

import (
	"errors"

	"github.com/mercato-next/internal/authz"
	"github.com/mercato-next/internal/http/handlers/shared"
	"github.com/mercato-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

type authzRolePayload struct {
	Role string `json:"role" binding:"required"`
}

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

type authzSetAdminRolesPayload struct {
	Roles []string `json:"roles"`
}

func respondAuthzError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, authz.ErrUnavailable) {
		respondError(c, response.CodeInternal, "authorization service unavailable", err)
		return
	}
	if errors.Is(err, authz.ErrReservedRole) {
		respondError(c, response.CodeBadRequest, "reserved role", nil)
		return
	}
	respondError(c, response.CodeBadRequest, fallback, err)
}

// ListAuthzRoles 角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondAuthzError(c, err, "failed to list roles")
		return
	}
	response.Success(c, roles)
}

// CreateAuthzRole 创建角色
func (h *Handler) CreateAuthzRole(c *gin.Context) {
	var req authzRolePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	role, err := h.AuthzService.EnsureRole(req.Role)
	if err != nil {
		respondAuthzError(c, err, "invalid role")
		return
	}
	requestLog(c).Infow("admin_authz_role_created", "role", role, "operator", currentUsername(c))
	response.Success(c, gin.H{"role": role})
}

// GrantAuthzPolicy 授予角色策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	if err := h.AuthzService.GrantRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondAuthzError(c, err, "invalid policy")
		return
	}
	requestLog(c).Infow("admin_authz_policy_granted",
		"role", req.Role,
		"object", req.Object,
		"action", req.Action,
		"operator", currentUsername(c),
	)
	response.Success(c, nil)
}

// RevokeAuthzPolicy 撤销角色策略
func (h *Handler) RevokeAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	if err := h.AuthzService.RevokeRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondAuthzError(c, err, "invalid policy")
		return
	}
	requestLog(c).Infow("admin_authz_policy_revoked",
		"role", req.Role,
		"object", req.Object,
		"action", req.Action,
		"operator", currentUsername(c),
	)
	response.Success(c, nil)
}

// ListAuthzAdmins 管理员列表（含角色）
func (h *Handler) ListAuthzAdmins(c *gin.Context) {
	admins, err := h.AdminRepo.List(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "failed to list admins", err)
		return
	}
	items := make([]gin.H, 0, len(admins))
	for _, admin := range admins {
		roles, roleErr := h.AuthzService.GetAdminRoles(admin.ID)
		if roleErr != nil {
			respondAuthzError(c, roleErr, "failed to load roles")
			return
		}
		items = append(items, gin.H{
			"id":            admin.ID,
			"username":      admin.Username,
			"is_super":      admin.IsSuper,
			"last_login_at": admin.LastLoginAt,
			"created_at":    admin.CreatedAt,
			"roles":         roles,
		})
	}
	response.Success(c, items)
}

// GetAuthzAdminRoles 查询管理员角色
func (h *Handler) GetAuthzAdminRoles(c *gin.Context) {
	adminID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondAuthzError(c, err, "failed to load roles")
		return
	}
	response.Success(c, gin.H{"admin_id": adminID, "roles": roles})
}

// SetAuthzAdminRoles 覆盖管理员角色
func (h *Handler) SetAuthzAdminRoles(c *gin.Context) {
	adminID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req authzSetAdminRolesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	admin, err := h.AdminRepo.GetByID(c.Request.Context(), adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch admin", err)
		return
	}
	if admin == nil {
		respondError(c, response.CodeNotFound, "admin not found", nil)
		return
	}
	if err := h.AuthzService.SetAdminRoles(adminID, req.Roles); err != nil {
		respondAuthzError(c, err, "invalid roles")
		return
	}
	requestLog(c).Infow("admin_authz_admin_roles_updated",
		"admin_id", adminID,
		"roles", req.Roles,
		"operator", currentUsername(c),
	)
	response.Success(c, nil)
}

// GetAuthzAdminPolicies 查询管理员生效策略
func (h *Handler) GetAuthzAdminPolicies(c *gin.Context) {
	adminID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	policies, err := h.AuthzService.GetAdminPolicies(adminID)
	if err != nil {
		respondAuthzError(c, err, "failed to load policies")
		return
	}
	response.Success(c, policies)
}
