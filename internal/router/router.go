package router

import (
	"agora/internal/auth"
	"agora/internal/handlers"
	"agora/internal/middleware"
	"agora/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps is everything the route table needs to build its handlers.
type Deps struct {
	DB            *gorm.DB
	Codec         *auth.Codec
	Users         *services.UserService
	Subreddits    *services.SubredditService
	Posts         *services.PostService
	Comments      *services.CommentService
	Votes         *services.VoteService
	Notifications *services.NotificationService
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Handlers
	healthHandler := handlers.NewHealthHandler(d.DB)
	authHandler := handlers.NewAuthHandler(d.Users)
	userHandler := handlers.NewUserHandler(d.Users)
	subredditHandler := handlers.NewSubredditHandler(d.Subreddits, d.Posts)
	postHandler := handlers.NewPostHandler(d.Posts)
	commentHandler := handlers.NewCommentHandler(d.Comments)
	voteHandler := handlers.NewVoteHandler(d.Votes)
	notificationHandler := handlers.NewNotificationHandler(d.Notifications)

	r.GET("/healthz", healthHandler.Check)

	// Public routes. A valid token, if sent, still identifies the caller.
	public := r.Group("/")
	public.Use(middleware.LoadCaller(d.Codec))
	{
		public.POST("/auth/register", authHandler.Register)
		public.POST("/auth/login", authHandler.Login)

		public.GET("/users/:id", userHandler.Profile)
		public.GET("/users/:id/karma", userHandler.Karma)

		public.GET("/subreddits", subredditHandler.List)
		public.GET("/subreddits/:name", subredditHandler.Show)
		public.GET("/subreddits/:name/members", subredditHandler.Members)
		public.GET("/subreddits/:name/posts", subredditHandler.Posts)

		public.GET("/posts", postHandler.List)
		public.GET("/posts/search", postHandler.Search)
		public.GET("/posts/:id", postHandler.Show)
		public.GET("/posts/:id/comments", commentHandler.List)
		public.GET("/posts/:id/votes", voteHandler.ListPost)
		public.GET("/posts/:id/votes/count", voteHandler.CountPost)
		public.GET("/comments/:id/votes", voteHandler.ListComment)
		public.GET("/comments/:id/votes/count", voteHandler.CountComment)
	}

	// Protected routes
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired(d.Codec))
	{
		authorized.PATCH("/users/me", userHandler.UpdateMe)

		authorized.POST("/subreddits", subredditHandler.Create)
		authorized.PATCH("/subreddits/:name", subredditHandler.Update)
		authorized.POST("/subreddits/:name/members", subredditHandler.Join)
		authorized.DELETE("/subreddits/:name/members", subredditHandler.Leave)

		authorized.POST("/posts", postHandler.Create)
		authorized.PATCH("/posts/:id", postHandler.Update)
		authorized.DELETE("/posts/:id", postHandler.Delete)

		authorized.POST("/posts/:id/comments", commentHandler.Create)
		authorized.PATCH("/comments/:id", commentHandler.Update)
		authorized.DELETE("/comments/:id", commentHandler.Delete)

		authorized.POST("/posts/:id/votes", voteHandler.VotePost)
		authorized.POST("/comments/:id/votes", voteHandler.VoteComment)
		authorized.DELETE("/votes/:id", voteHandler.Cancel)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
	}
}
