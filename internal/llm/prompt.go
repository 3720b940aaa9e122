package llm

import (
	"fmt"
)

const systemPrompt = "Eres un experto costista de construccion en Chile. Respondes solo con JSON valido."

// BuildPrompt constructs the default estimate prompt for an instruction
func BuildPrompt(instruction string, withImage bool) string {
	imageNote := ""
	if withImage {
		imageNote = "\nSe adjunta una imagen de la obra: usala para identificar elementos, materiales y dimensiones.\n"
	}

	return fmt.Sprintf(`Analiza la solicitud y entrega un presupuesto detallado en PESOS CHILENOS (CLP).
%s
Responde UNICAMENTE con un objeto JSON con esta forma:
{
  "resumen": "una o dos frases describiendo el trabajo",
  "partidas": [
    {
      "elemento": "nombre corto de la partida",
      "descripcion": "detalle de materiales y alcance",
      "cantidad": 0,
      "unidad": "m2 | m3 | ml | kg | un | gl",
      "precio_unitario": 0
    }
  ]
}

Reglas:
- Precios unitarios de mercado chileno, sin IVA, en pesos enteros.
- No incluyas mano de obra general, gastos generales, imprevistos ni utilidad: se calculan aparte.
- No agregues texto fuera del JSON.

Solicitud del cliente: %q
`, imageNote, instruction)
}
