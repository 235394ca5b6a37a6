package http

import (
	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/service"
	"github.com/aussiebroadwan/tenantauth/pkg/authsdk"
)

func toUser(u domain.User) authsdk.User {
	return authsdk.User{
		ID:            u.ID,
		TenantID:      u.TenantID,
		Email:         u.Email,
		FullName:      u.FullName,
		Role:          string(u.Role),
		Active:        u.Active,
		EmailVerified: u.EmailVerified,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
	}
}

func toTenant(t domain.Tenant) authsdk.Tenant {
	return authsdk.Tenant{
		ID:        t.ID,
		Name:      t.Name,
		Slug:      t.Slug,
		Plan:      t.Plan,
		Active:    t.Active,
		CreatedAt: t.CreatedAt,
	}
}

func toTokens(p domain.TokenPair) authsdk.TokenPair {
	return authsdk.TokenPair(p)
}

func toSessions(views []service.SessionView) []authsdk.SessionInfo {
	out := make([]authsdk.SessionInfo, 0, len(views))
	for _, v := range views {
		out = append(out, authsdk.SessionInfo{
			ID:         v.ID,
			DeviceInfo: v.DeviceInfo,
			IPAddress:  v.IPAddress,
			CreatedAt:  v.CreatedAt,
			LastUsedAt: v.LastUsedAt,
			ExpiresAt:  v.ExpiresAt,
			IsCurrent:  v.Current,
		})
	}
	return out
}
