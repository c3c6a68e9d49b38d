package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oaklinehq/oakline-backend/internal/catalog"
	"github.com/oaklinehq/oakline-backend/pkg/db/models"
	pkgerrors "github.com/oaklinehq/oakline-backend/pkg/errors"
)

// Line is a cart item joined with its live catalog data.
type Line struct {
	Item      models.CartItem
	Product   models.Product
	Variant   *models.ProductVariant
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// View is a cart with derived totals.
type View struct {
	Cart       models.Cart
	Lines      []Line
	ItemCount  int
	TotalPrice decimal.Decimal
}

// Service owns cart mutations. Quantities are clamped to the available stock
// at mutation time so a cart can never hold more than the catalog offers.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID, quantity int) (*View, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*View, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo    Repository
	catalog catalog.Repository
}

// NewService validates dependencies and returns a cart service.
func NewService(repo Repository, catalogRepo catalog.Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("cart repository is required")
	}
	if catalogRepo == nil {
		return nil, errors.New("catalog repository is required")
	}
	return &service{repo: repo, catalog: catalogRepo}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID, quantity int) (*View, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	available := product.StockQuantity
	if variantID != nil {
		variant, verr := s.catalog.GetVariant(ctx, *variantID)
		if verr != nil {
			return nil, verr
		}
		if variant.ProductID != productID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product")
		}
		if !variant.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant is not available")
		}
		available = variant.StockQuantity
	}

	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindItem(ctx, cart.ID, productID, variantID)
	if err != nil {
		return nil, err
	}

	desired := quantity
	if existing != nil {
		desired += existing.Quantity
	}
	clamped := clampQuantity(desired, available)
	if clamped == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "product is out of stock")
	}

	if existing != nil {
		if err := s.repo.UpdateItemQuantity(ctx, existing.ID, clamped); err != nil {
			return nil, err
		}
	} else {
		item := &models.CartItem{
			ID:        uuid.New(),
			CartID:    cart.ID,
			ProductID: productID,
			VariantID: variantID,
			Quantity:  clamped,
		}
		if err := s.repo.CreateItem(ctx, item); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, userID)
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*View, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	item := findItemByID(cart, itemID)
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}

	if quantity == 0 {
		if _, err := s.repo.DeleteItem(ctx, cart.ID, itemID); err != nil {
			return nil, err
		}
		return s.Get(ctx, userID)
	}

	available, err := s.availableFor(ctx, item)
	if err != nil {
		return nil, err
	}
	clamped := clampQuantity(quantity, available)
	if clamped == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "product is out of stock")
	}
	if err := s.repo.UpdateItemQuantity(ctx, itemID, clamped); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*View, error) {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	affected, err := s.repo.DeleteItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.Get(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.ClearItems(ctx, cart.ID)
}

func (s *service) getOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		return cart, nil
	}
	created := &models.Cart{ID: uuid.New(), UserID: userID}
	if err := s.repo.Create(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) availableFor(ctx context.Context, item *models.CartItem) (int, error) {
	if item.VariantID != nil {
		variant, err := s.catalog.GetVariant(ctx, *item.VariantID)
		if err != nil {
			return 0, err
		}
		return variant.StockQuantity, nil
	}
	product, err := s.catalog.GetProduct(ctx, item.ProductID)
	if err != nil {
		return 0, err
	}
	return product.StockQuantity, nil
}

func (s *service) buildView(ctx context.Context, cart *models.Cart) (*View, error) {
	view := &View{Cart: *cart, TotalPrice: decimal.Zero}
	for _, item := range cart.Items {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		line := Line{Item: item, Product: *product, UnitPrice: product.Price}
		if item.VariantID != nil {
			variant, verr := s.catalog.GetVariant(ctx, *item.VariantID)
			if verr != nil {
				return nil, verr
			}
			line.Variant = variant
			if variant.Price != nil {
				line.UnitPrice = *variant.Price
			}
		}
		line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		view.Lines = append(view.Lines, line)
		view.ItemCount += item.Quantity
		view.TotalPrice = view.TotalPrice.Add(line.LineTotal)
	}
	return view, nil
}

func findItemByID(cart *models.Cart, itemID uuid.UUID) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return &cart.Items[i]
		}
	}
	return nil
}

func clampQuantity(desired, available int) int {
	if desired > available {
		return available
	}
	return desired
}
