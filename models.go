package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            string    `bun:"id,pk" json:"id"`
	Name          string    `bun:"name,notnull" json:"name"`
	Email         string    `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string    `bun:"password_hash,notnull" json:"-"`
	Claims        Claims    `bun:"claims" json:"claims"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// StoredClaims returns the claims kept on the user record, never nil
func (u *User) StoredClaims() Claims {
	if u == nil || u.Claims == nil {
		return Claims{}
	}
	return u.Claims
}

// AddClaim will set a stored claim on the user
func (u *User) AddClaim(key string, val any) *User {
	if u.Claims == nil {
		u.Claims = Claims{}
	}
	u.Claims[key] = val
	return u
}

// TokenClaims builds the claims issued for this user at now. Stored
// claims overlay the defaults except for sub and iat.
func (u *User) TokenClaims(now time.Time) Claims {
	base := Claims{
		ClaimSubject:  u.ID,
		ClaimIssuedAt: now.UnixMilli(),
		ClaimRole:     DefaultRole,
		ClaimName:     u.Name,
		ClaimEmail:    u.Email,
	}
	return base.Merge(u.StoredClaims(), ClaimSubject, ClaimIssuedAt)
}

// Post is the blog post model, holding the current version
type Post struct {
	bun.BaseModel `bun:"table:posts,alias:p"`
	ID            string    `bun:"id,pk" json:"id"`
	UserID        string    `bun:"user_id,notnull" json:"user_id"`
	Version       int       `bun:"version,notnull" json:"version"`
	Title         string    `bun:"title,notnull" json:"title"`
	Content       string    `bun:"content,notnull" json:"content"`
	ImageURL      string    `bun:"image_url" json:"image_url"`
	Views         int       `bun:"views,notnull,default:0" json:"views"`
	Likes         int       `bun:"likes,notnull,default:0" json:"likes"`
	Dislikes      int       `bun:"dislikes,notnull,default:0" json:"dislikes"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// PostVersion is an immutable snapshot written on every post upsert
type PostVersion struct {
	bun.BaseModel `bun:"table:post_versions,alias:pv"`
	ID            int64     `bun:"id,pk,autoincrement" json:"-"`
	PostID        string    `bun:"post_id,notnull" json:"post_id"`
	Version       int       `bun:"version,notnull" json:"version"`
	Title         string    `bun:"title,notnull" json:"title"`
	Content       string    `bun:"content,notnull" json:"content"`
	ImageURL      string    `bun:"image_url" json:"image_url"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// NewPublicID returns an identifier for users and posts
func NewPublicID() string {
	return uuid.NewString()
}
