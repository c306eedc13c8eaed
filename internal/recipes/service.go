package recipes

import (
	"context"
	"fmt"
)

// Ingredient is one entry of a generated recipe.
type Ingredient struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// Recipe is an AI-generated recipe. Generation itself happens entirely on
// the backend; this service only carries the calls.
type Recipe struct {
	ID           int64        `json:"id"`
	Title        string       `json:"title"`
	Instructions string       `json:"instructions"`
	PrepTime     string       `json:"prepTime"`
	Difficulty   string       `json:"difficulty"`
	ImageURL     string       `json:"imageUrl"`
	Ingredients  []Ingredient `json:"ingredients"`
}

// OrderConfirmation is returned when a recipe is converted into an order.
type OrderConfirmation struct {
	Message string `json:"message"`
	OrderID int64  `json:"orderId"`
}

type backend interface {
	GetJSON(ctx context.Context, path string, out any) error
	PostJSON(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// Service proxies the chef-assistant and recipe feed endpoints.
type Service struct {
	api backend
}

func NewService(api backend) (*Service, error) {
	if api == nil {
		return nil, fmt.Errorf("upstream client required")
	}
	return &Service{api: api}, nil
}

// Generate asks the backend's chef assistant for a recipe from a prompt.
func (s *Service) Generate(ctx context.Context, prompt string) (*Recipe, error) {
	var recipe Recipe
	payload := map[string]string{"prompt": prompt}
	if err := s.api.PostJSON(ctx, "/user/chef/generate", payload, &recipe); err != nil {
		return nil, err
	}
	return &recipe, nil
}

// Mine returns the signed-in shopper's saved recipes.
func (s *Service) Mine(ctx context.Context) ([]Recipe, error) {
	var recipes []Recipe
	if err := s.api.GetJSON(ctx, "/user/recipes", &recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// Public returns the shared recipe feed.
func (s *Service) Public(ctx context.Context) ([]Recipe, error) {
	var recipes []Recipe
	if err := s.api.GetJSON(ctx, "/public/recipes", &recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// Delete removes one of the shopper's recipes.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.api.Delete(ctx, fmt.Sprintf("/user/recipes/%d", id))
}

// ToCart converts a recipe's ingredient list straight into a placed order.
func (s *Service) ToCart(ctx context.Context, id int64) (*OrderConfirmation, error) {
	var confirmation OrderConfirmation
	if err := s.api.PostJSON(ctx, fmt.Sprintf("/user/recipe/%d/to-cart", id), nil, &confirmation); err != nil {
		return nil, err
	}
	return &confirmation, nil
}
